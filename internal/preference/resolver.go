// Package preference resolves per-user, per-instrument notification
// preferences. Resolution is pure and total: absent or malformed preference
// data always resolves to "not subscribed".
package preference

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Channel selects which preference flag a lookup targets.
type Channel string

const (
	ChannelNotifications Channel = "notifications"
	ChannelVolume        Channel = "volume"
)

// InstrumentPreference holds the channel flags for one instrument.
type InstrumentPreference struct {
	Notifications bool `json:"notifications"`
	Volume        bool `json:"volume"`
	Favorite      bool `json:"favorite"`
}

// Map is a user's full preference map, keyed by instrument name. Instruments
// without an entry are opted out of everything.
type Map map[string]InstrumentPreference

// IsSubscribed reports whether prefs opts the user into the given channel for
// the instrument. Missing instruments and nil maps resolve to false.
func IsSubscribed(prefs Map, instrument string, channel Channel) bool {
	entry, ok := prefs[instrument]
	if !ok {
		return false
	}
	switch channel {
	case ChannelNotifications:
		return entry.Notifications
	case ChannelVolume:
		return entry.Volume
	default:
		return false
	}
}

// ParseMap decodes a raw JSONB preference blob. Malformed or empty input
// yields an empty map rather than an error.
func ParseMap(raw datatypes.JSON) Map {
	if len(raw) == 0 {
		return Map{}
	}
	var m Map
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return Map{}
	}
	return m
}
