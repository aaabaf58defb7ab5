package domain

import (
	"encoding/json"
	"errors"
	"time"
)

const MaxChatTextLen = 4096

var (
	ErrEmptyText               = errors.New("chat text empty")
	ErrTextTooLong             = errors.New("chat text too long")
	ErrInvalidSegment          = errors.New("invalid stroke segment")
	ErrInvalidNotificationKind = errors.New("invalid notification kind")
	ErrMissingTarget           = errors.New("signal target missing")
	ErrMissingPayload          = errors.New("signal payload missing")
)

type SignalKind string

const (
	SignalOffer  SignalKind = "offer-initiation"
	SignalReturn SignalKind = "negotiation-return"
)

// SignalEnvelope wraps an opaque negotiation blob with its routing. The
// payload is never decoded by the hub.
type SignalEnvelope struct {
	Kind    SignalKind
	From    ConnectionID
	To      ConnectionID
	Payload json.RawMessage
}

func (e SignalEnvelope) Validate() error {
	if e.To == "" {
		return ErrMissingTarget
	}
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return ErrMissingPayload
	}
	return nil
}

type ChatEvent struct {
	Room      RoomID // empty for lobby chat
	From      ConnectionID
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

func (e ChatEvent) Validate() error {
	if e.Text == "" {
		return ErrEmptyText
	}
	if len(e.Text) > MaxChatTextLen {
		return ErrTextTooLong
	}
	if e.Room != "" {
		if err := e.Room.Validate(); err != nil {
			return err
		}
	}
	return e.Sender.Validate()
}

type Segment string

const (
	SegmentStart Segment = "start"
	SegmentMove  Segment = "move"
	SegmentEnd   Segment = "end"
)

func (s Segment) Valid() bool {
	switch s {
	case SegmentStart, SegmentMove, SegmentEnd:
		return true
	}
	return false
}

type DrawEvent struct {
	Room        RoomID
	From        ConnectionID
	X           float64
	Y           float64
	Color       string
	StrokeWidth float64
	Segment     Segment
}

func (e DrawEvent) Validate() error {
	if err := e.Room.Validate(); err != nil {
		return err
	}
	if !e.Segment.Valid() {
		return ErrInvalidSegment
	}
	return nil
}

type NotificationKind string

const (
	AssignmentCreated NotificationKind = "assignment-created"
	AssignmentUpdated NotificationKind = "assignment-updated"
	PollCreated       NotificationKind = "poll-created"
	PollUpdated       NotificationKind = "poll-updated"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case AssignmentCreated, AssignmentUpdated, PollCreated, PollUpdated:
		return true
	}
	return false
}

// NotificationEvent originates in the CRUD layer after it commits an
// assignment or poll change. Payload is forwarded verbatim.
type NotificationEvent struct {
	Room    RoomID
	Kind    NotificationKind
	Payload json.RawMessage
}

func (e NotificationEvent) Validate() error {
	if err := e.Room.Validate(); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return ErrInvalidNotificationKind
	}
	return nil
}
