package effect

import (
	"strings"

	"golang-signal-notifier/internal/entity"
)

// ToastCategory is the visual category of a dispatched toast.
type ToastCategory string

const (
	ToastInfo     ToastCategory = "info"
	ToastPositive ToastCategory = "positive"
	ToastNegative ToastCategory = "negative"
	ToastNeutral  ToastCategory = "neutral"
)

// Toast is one UI-facing effect derived from a notification row, carrying the
// sound cue alongside the visual category.
type Toast struct {
	Category ToastCategory `json:"category"`
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	URL      string        `json:"url,omitempty"`
	Cue      Cue           `json:"cue,omitempty"`
}

// Classify maps a notification row to its toast category. Rows written by
// the watcher carry structured event kind and trade side, which take
// precedence; the text heuristic only covers rows without them (admin
// broadcasts, rows predating the structured columns).
func Classify(n *entity.Notification) ToastCategory {
	if n.Type != entity.NotificationTypeSignal {
		return ToastInfo
	}

	if n.EventKind != "" {
		if n.EventKind == entity.EventKindClosed {
			return ToastInfo
		}
		switch n.TradeSide {
		case entity.TradeSideBuy:
			return ToastPositive
		case entity.TradeSideSell:
			return ToastNegative
		default:
			return ToastNeutral
		}
	}

	return classifyFromText(n.Title, n.Body)
}

// classifyFromText is a best-effort heuristic over unstructured title/body
// text. Known fragility; structured fields are the real contract.
func classifyFromText(title, body string) ToastCategory {
	lowerTitle := strings.ToLower(title)
	lowerBody := strings.ToLower(body)

	switch {
	case strings.Contains(lowerTitle, "closed"):
		return ToastInfo
	case strings.Contains(lowerBody, "buy") || strings.Contains(lowerBody, "long"):
		return ToastPositive
	case strings.Contains(lowerBody, "sell") || strings.Contains(lowerBody, "short"):
		return ToastNegative
	default:
		return ToastNeutral
	}
}
