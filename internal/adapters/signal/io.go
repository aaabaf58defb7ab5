package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				c.Close()
				return
			}
		}
	}
}

// readPump owns every inbound event of one connection, so that
// connection's events are handled strictly in arrival order.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid domain.ConnectionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		ctl.joins.Forget(sid)
		c.Close()
		cancel()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		ctl.handleSignal(sid, data)
	}
}

func (ctl *SignalWSController) handleSignal(sid domain.ConnectionID, data []byte) {
	var env struct {
		Type core.MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return
	}

	switch env.Type {
	case core.TypeJoin:
		ctl.handleJoin(sid, data)
	case core.TypeLeave:
		ctl.handleLeave(sid)
	case core.TypePing:
		ctl.handlePing(sid)
	case core.TypeSignalInit:
		ctl.handleSignalInitiate(sid, data)
	case core.TypeSignalRet:
		ctl.handleSignalReturn(sid, data)
	case core.TypeChat:
		ctl.handleChat(sid, data)
	case core.TypeDraw:
		ctl.handleDraw(sid, data)
	case core.TypeClearBoard:
		ctl.handleClearBoard(sid, data)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", string(env.Type)).Msg("unknown signal")
	}
}

// decode unmarshals an inbound payload, logging and reporting false on
// malformed input.
func decode(sid domain.ConnectionID, t core.MessageType, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", string(t)).Msg("bad payload")
		return false
	}
	return true
}
