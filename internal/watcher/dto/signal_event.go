package dto

import "golang-signal-notifier/internal/entity"

const (
	ChangeKindInsert = "insert"
	ChangeKindUpdate = "update"
)

// SignalChangeEvent is one changefeed message for the signal table. Delivery
// is at-least-once and unordered across rows.
type SignalChangeEvent struct {
	Kind string             `json:"kind"`
	Row  entity.SignalEvent `json:"row"`
}
