package signal

import (
	"time"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
)

func (ctl *SignalWSController) handleChat(sid domain.ConnectionID, data []byte) {
	var p struct {
		Room      domain.RoomID `json:"room"`
		UserID    domain.UserID `json:"userId"`
		UserName  string        `json:"userName"`
		UserRole  domain.Role   `json:"userRole"`
		Text      string        `json:"text"`
		CreatedAt *time.Time    `json:"createdAt"`
	}
	if !decode(sid, core.TypeChat, data, &p) {
		return
	}
	ev := domain.ChatEvent{
		Room:   p.Room,
		Sender: domain.Sender{UserID: p.UserID, Name: p.UserName, Role: p.UserRole},
		Text:   p.Text,
	}
	if p.CreatedAt != nil {
		ev.CreatedAt = *p.CreatedAt
	}
	ctl.Orch.Chat(sid, ev)
}

func (ctl *SignalWSController) handleDraw(sid domain.ConnectionID, data []byte) {
	var p struct {
		Room    domain.RoomID  `json:"room"`
		X       float64        `json:"x"`
		Y       float64        `json:"y"`
		Color   string         `json:"color"`
		Width   float64        `json:"width"`
		Segment domain.Segment `json:"segment"`
	}
	if !decode(sid, core.TypeDraw, data, &p) {
		return
	}
	ctl.Orch.Draw(sid, domain.DrawEvent{
		Room:        p.Room,
		X:           p.X,
		Y:           p.Y,
		Color:       p.Color,
		StrokeWidth: p.Width,
		Segment:     p.Segment,
	})
}

func (ctl *SignalWSController) handleClearBoard(sid domain.ConnectionID, data []byte) {
	var p struct {
		Room domain.RoomID `json:"room"`
	}
	if !decode(sid, core.TypeClearBoard, data, &p) {
		return
	}
	ctl.Orch.ClearBoard(sid, p.Room)
}
