package core

import (
	"encoding/json"
	"time"

	"github.com/dkeye/liveclass/internal/domain"
)

// MessageType is the "type" discriminator carried by every frame.
type MessageType string

const (
	// Client -> Server
	TypeJoin       MessageType = "join"
	TypeLeave      MessageType = "leave"
	TypePing       MessageType = "ping"
	TypeSignalInit MessageType = "signal-initiate"
	TypeSignalRet  MessageType = "signal-return"
	TypeChat       MessageType = "chat"
	TypeDraw       MessageType = "draw"
	TypeClearBoard MessageType = "clearBoard"

	// Server -> Client only
	TypeWelcome       MessageType = "welcome"
	TypeExistingPeers MessageType = "existing-peers"
	TypeNotification  MessageType = "notification"
	TypePeerLeft      MessageType = "peer-left"
	TypePong          MessageType = "pong"
)

type WelcomeMessage struct {
	Type MessageType         `json:"type"`
	ID   domain.ConnectionID `json:"id"`
}

type PeersMessage struct {
	Type  MessageType           `json:"type"`
	Room  domain.RoomID         `json:"room"`
	Peers []domain.ConnectionID `json:"peers"`
}

type SignalMessage struct {
	Type    MessageType         `json:"type"`
	From    domain.ConnectionID `json:"from"`
	Payload json.RawMessage     `json:"payload"`
}

type ChatMessage struct {
	Type MessageType         `json:"type"`
	Room domain.RoomID       `json:"room,omitempty"`
	From domain.ConnectionID `json:"from"`
	domain.Sender
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type DrawMessage struct {
	Type    MessageType         `json:"type"`
	Room    domain.RoomID       `json:"room"`
	From    domain.ConnectionID `json:"from"`
	X       float64             `json:"x"`
	Y       float64             `json:"y"`
	Color   string              `json:"color,omitempty"`
	Width   float64             `json:"width,omitempty"`
	Segment domain.Segment      `json:"segment"`
}

type ClearMessage struct {
	Type MessageType         `json:"type"`
	Room domain.RoomID       `json:"room"`
	From domain.ConnectionID `json:"from"`
}

type NotificationMessage struct {
	Type    MessageType             `json:"type"`
	Room    domain.RoomID           `json:"room"`
	Kind    domain.NotificationKind `json:"kind"`
	Payload json.RawMessage         `json:"payload,omitempty"`
}

type PeerLeftMessage struct {
	Type MessageType         `json:"type"`
	Room domain.RoomID       `json:"room"`
	Peer domain.ConnectionID `json:"peer"`
}

type PongMessage struct {
	Type MessageType `json:"type"`
}

func NewSignalMessage(env domain.SignalEnvelope) SignalMessage {
	t := TypeSignalInit
	if env.Kind == domain.SignalReturn {
		t = TypeSignalRet
	}
	return SignalMessage{Type: t, From: env.From, Payload: env.Payload}
}

func NewChatMessage(ev domain.ChatEvent) ChatMessage {
	return ChatMessage{
		Type:      TypeChat,
		Room:      ev.Room,
		From:      ev.From,
		Sender:    ev.Sender,
		Text:      ev.Text,
		CreatedAt: ev.CreatedAt,
	}
}

func NewDrawMessage(ev domain.DrawEvent) DrawMessage {
	return DrawMessage{
		Type:    TypeDraw,
		Room:    ev.Room,
		From:    ev.From,
		X:       ev.X,
		Y:       ev.Y,
		Color:   ev.Color,
		Width:   ev.StrokeWidth,
		Segment: ev.Segment,
	}
}

func NewNotificationMessage(ev domain.NotificationEvent) NotificationMessage {
	return NotificationMessage{Type: TypeNotification, Room: ev.Room, Kind: ev.Kind, Payload: ev.Payload}
}

// Encode marshals an outbound message into a frame.
func Encode(v any) (Frame, error) {
	return json.Marshal(v)
}
