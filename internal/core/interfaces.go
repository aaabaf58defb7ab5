package core

import (
	"errors"

	"github.com/dkeye/liveclass/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks. It returns ErrBackpressure when the outbound
	// queue is full and ErrClosed once the connection is gone.
	TrySend(Frame) error
	Close()
}

// Recipient pairs a connection id with its transport endpoint.
type Recipient struct {
	ID   domain.ConnectionID
	Conn SignalConnection
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []Recipient
}

// Send pushes f to every recipient and collects the ones that refused it.
func Send(targets []Recipient, f Frame) PublishResult {
	res := PublishResult{}
	for _, t := range targets {
		if err := t.Conn.TrySend(f); err != nil {
			if errors.Is(err, ErrBackpressure) {
				res.Dropped = append(res.Dropped, t)
			}
			continue
		}
		res.SendTo++
	}
	return res
}
