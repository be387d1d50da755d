package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tonimelisma/drivewhizz/internal/command"
)

const wsReadLimit = 16 << 10

// handleWebSocket runs a chat over one WebSocket: every text frame is a line,
// every reply a JSON Response. Cookies cannot change after the upgrade, so a
// token refreshed mid-connection lives only as long as the connection, and
// AUTH points at the login route instead of setting a state cookie.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conv := s.conversation(w, r)
	mgr := s.manager(w, r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(wsReadLimit)

	in := s.interpreter(mgr, func(context.Context) (string, error) {
		return "/api/auth/login", nil
	})

	ctx := r.Context()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway &&
				!errors.Is(err, context.Canceled) {
				s.logger.Debug("websocket closed", slog.String("error", err.Error()))
			}

			return
		}

		if typ != websocket.MessageText {
			_ = conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}

		line := string(data)
		cmd := command.Parse(line)
		resp := in.Run(ctx, cmd)

		s.record(ctx, conv, line, cmd, resp)

		if err := wsjson.Write(ctx, conn, resp); err != nil {
			s.logger.Debug("websocket write failed", slog.String("error", err.Error()))
			return
		}
	}
}
