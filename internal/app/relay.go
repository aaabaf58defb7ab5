package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/dkeye/liveclass/internal/metrics"
	"github.com/rs/zerolog/log"
)

// SignalRelay forwards negotiation envelopes between two connections. It
// never looks inside the payload.
//
// The mesh is built by the newly joined peer initiating to every peer it
// got in existing-peers; those peers only ever answer.
type SignalRelay struct {
	reg      *Registry
	metrics  *metrics.Metrics
	onResult func(domain.RoomID, core.PublishResult)
}

// NewSignalRelay builds a relay. onResult, if set, gets a target whose
// queue was full, with the room it is in, so the backpressure policy
// covers signals as well as room events.
func NewSignalRelay(reg *Registry, m *metrics.Metrics, onResult func(domain.RoomID, core.PublishResult)) *SignalRelay {
	return &SignalRelay{reg: reg, metrics: m, onResult: onResult}
}

// RelayOffer delivers an offer-initiation from one peer to another.
// A missing target is a normal join race: the signal is dropped.
func (s *SignalRelay) RelayOffer(from, to domain.ConnectionID, payload json.RawMessage) bool {
	return s.relay(domain.SignalEnvelope{Kind: domain.SignalOffer, From: from, To: to, Payload: payload})
}

// RelayReturn delivers the answering leg back to the initiator.
func (s *SignalRelay) RelayReturn(to, from domain.ConnectionID, payload json.RawMessage) bool {
	return s.relay(domain.SignalEnvelope{Kind: domain.SignalReturn, From: from, To: to, Payload: payload})
}

func (s *SignalRelay) relay(env domain.SignalEnvelope) bool {
	logger := log.With().
		Str("module", "app.relay").
		Str("kind", string(env.Kind)).
		Str("from", string(env.From)).
		Str("to", string(env.To)).
		Logger()

	conn, ok := s.reg.Get(env.To)
	if !ok {
		s.metrics.RelayDrop("gone")
		logger.Info().Msg("relay target gone, signal dropped")
		return false
	}
	f, err := core.Encode(core.NewSignalMessage(env))
	if err != nil {
		logger.Error().Err(err).Msg("relay encode")
		return false
	}
	if err := conn.TrySend(f); err != nil {
		reason := "closed"
		if errors.Is(err, core.ErrBackpressure) {
			reason = "backpressure"
		}
		s.metrics.RelayDrop(reason)
		logger.Warn().Err(err).Msg("relay send failed, signal dropped")
		if reason == "backpressure" && s.onResult != nil {
			room, _ := s.reg.CurrentRoom(env.To)
			s.onResult(room, core.PublishResult{Dropped: []core.Recipient{{ID: env.To, Conn: conn}}})
		}
		return false
	}
	logger.Debug().Msg("signal relayed")
	return true
}
