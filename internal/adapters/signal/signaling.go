package signal

import (
	"encoding/json"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
)

type signalPayload struct {
	To      domain.ConnectionID `json:"to"`
	Payload json.RawMessage     `json:"payload"`
}

func (ctl *SignalWSController) handleSignalInitiate(sid domain.ConnectionID, data []byte) {
	var p signalPayload
	if !decode(sid, core.TypeSignalInit, data, &p) {
		return
	}
	ctl.Orch.SignalInitiate(sid, p.To, p.Payload)
}

func (ctl *SignalWSController) handleSignalReturn(sid domain.ConnectionID, data []byte) {
	var p signalPayload
	if !decode(sid, core.TypeSignalRet, data, &p) {
		return
	}
	ctl.Orch.SignalReturn(sid, p.To, p.Payload)
}
