package signal

import (
	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(sid domain.ConnectionID, data []byte) {
	var p struct {
		Room domain.RoomID `json:"room"`
	}
	if !decode(sid, core.TypeJoin, data, &p) {
		return
	}
	if !ctl.joins.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("room", string(p.Room)).Msg("join rate limited")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(p.Room)).Msg("join")
	ctl.Orch.Join(sid, p.Room)
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid domain.ConnectionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid)
}
