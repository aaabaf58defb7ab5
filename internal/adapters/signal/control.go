package signal

import "github.com/dkeye/liveclass/internal/domain"

func (ctl *SignalWSController) handlePing(sid domain.ConnectionID) {
	ctl.Orch.Ping(sid)
}
