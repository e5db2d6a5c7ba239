package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const wsWriteTimeout = 10 * time.Second

// TelemetryMessage is one frame of the telemetry stream
type TelemetryMessage struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// telemetryStreamHandler pushes a telemetry snapshot to the client every
// interval until the client disconnects.
func (s *Server) telemetryStreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.collector == nil {
			writeError(w, http.StatusServiceUnavailable, "telemetry not available")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// The client only sends close frames; reading surfaces them.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.WithError(err).Debug("telemetry stream read error")
					}
					return
				}
			}
		}()

		ticker := time.NewTicker(s.telemetryInterval)
		defer ticker.Stop()

		for {
			if err := s.sendTelemetry(ctx, conn); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			case <-ticker.C:
			}
		}
	}
}

func (s *Server) sendTelemetry(ctx context.Context, conn *websocket.Conn) error {
	msg := TelemetryMessage{Type: "system_info"}
	info, err := s.collector.Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg.Type = "error"
		msg.Error = err.Error()
	} else {
		msg.Data = info
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(msg)
}
