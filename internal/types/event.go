package types

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind names a command the dispatcher knows how to route.
type ActionKind int

const (
	FetchEditorSettings ActionKind = iota + 1
)

var ActionTextMap = map[ActionKind]string{
	FetchEditorSettings: "fetch_editor_settings",
}

func (k ActionKind) String() string {
	if s, ok := ActionTextMap[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText lets ActionKind appear by name in JSON payloads.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(b []byte) error {
	for kind, name := range ActionTextMap {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return ErrUnknownAction
}

// EventError is the error side of a ChangeEvent.
type EventError struct {
	Message string `json:"message"`
}

// ChangeEvent carries either a settings document or an error, never both.
// Events are not mutated after construction.
type ChangeEvent struct {
	ID        string            `json:"id"`
	SiteID    int64             `json:"site_id"`
	Cause     ActionKind        `json:"cause"`
	Document  *SettingsDocument `json:"document,omitempty"`
	FromCache bool              `json:"from_cache"`
	Error     *EventError       `json:"error,omitempty"`
	At        time.Time         `json:"at"`
}

func NewDocumentEvent(cause ActionKind, doc *SettingsDocument, fromCache bool) ChangeEvent {
	return ChangeEvent{
		ID:        uuid.NewString(),
		SiteID:    doc.SiteID,
		Cause:     cause,
		Document:  doc,
		FromCache: fromCache,
		At:        time.Now().UTC(),
	}
}

func NewErrorEvent(cause ActionKind, siteID int64, message string) ChangeEvent {
	return ChangeEvent{
		ID:     uuid.NewString(),
		SiteID: siteID,
		Cause:  cause,
		Error:  &EventError{Message: message},
		At:     time.Now().UTC(),
	}
}

func (e ChangeEvent) IsError() bool { return e.Error != nil }
