package orch

import (
	"encoding/json"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/rs/zerolog/log"
)

// SignalInitiate forwards sid's offer to one existing peer.
func (o *Orchestrator) SignalInitiate(sid, to domain.ConnectionID, payload json.RawMessage) bool {
	if !o.live(sid, string(core.TypeSignalInit)) {
		return false
	}
	env := domain.SignalEnvelope{Kind: domain.SignalOffer, From: sid, To: to, Payload: payload}
	if err := env.Validate(); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("malformed signal-initiate ignored")
		return false
	}
	return o.Relay.RelayOffer(sid, to, payload)
}

// SignalReturn forwards sid's answer back to the peer that initiated.
func (o *Orchestrator) SignalReturn(sid, to domain.ConnectionID, payload json.RawMessage) bool {
	if !o.live(sid, string(core.TypeSignalRet)) {
		return false
	}
	env := domain.SignalEnvelope{Kind: domain.SignalReturn, From: sid, To: to, Payload: payload}
	if err := env.Validate(); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("malformed signal-return ignored")
		return false
	}
	return o.Relay.RelayReturn(to, sid, payload)
}
