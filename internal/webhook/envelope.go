package webhook

import (
	"encoding/json"
	"errors"
	"strings"
)

// Envelope is the provider's delivery wrapper. The type field encodes the
// source app as a prefix ("slack_receive_message", "gmail_new_email"); data
// carries the app-specific payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`

	// Tenant id has appeared under several names across provider versions.
	EntityIDSnake string `json:"entity_id"`
	EntityIDCamel string `json:"entityId"`
	UserID        string `json:"user_id"`
}

var (
	ErrBadEnvelope = errors.New("webhook: unparseable envelope")
	ErrNoEntityID  = errors.New("webhook: missing entity id")
)

func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrBadEnvelope
	}
	return &env, nil
}

// App derives the source app from the type prefix. Unknown prefixes are
// passed through so the pipeline can reject them with its own reason.
func (e *Envelope) App() string {
	switch {
	case strings.HasPrefix(e.Type, "slack_"):
		return "slack"
	case strings.HasPrefix(e.Type, "gmail_"):
		return "gmail"
	default:
		return e.Type
	}
}

// EntityID tries the known tenant-id field names in order: top-level
// first, then the same names inside data.
func (e *Envelope) EntityID() (string, error) {
	if id := firstNonEmpty(e.EntityIDSnake, e.EntityIDCamel, e.UserID); id != "" {
		return id, nil
	}

	var inner struct {
		EntityIDSnake string `json:"entity_id"`
		EntityIDCamel string `json:"entityId"`
		UserID        string `json:"user_id"`
	}
	if len(e.Data) > 0 {
		_ = json.Unmarshal(e.Data, &inner)
	}
	if id := firstNonEmpty(inner.EntityIDSnake, inner.EntityIDCamel, inner.UserID); id != "" {
		return id, nil
	}
	return "", ErrNoEntityID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
