package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"SignalSentinel/internal/model"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// envelope is every message sent on the signal stream.
type envelope struct {
	Type    string        `json:"type"` // connected, signal, ping or pong
	Message string        `json:"message,omitempty"`
	Data    *model.Signal `json:"data,omitempty"`
}

// handleWebSocket streams new signals to one client. Any client message is
// answered with a pong; a ping is sent when the stream is idle. The stream
// ends when the client goes away or the store closes the subscription.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	signals, cancel := s.signals.Subscribe()
	defer cancel()

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("websocket client connected")
	defer log.Info("websocket client disconnected")

	// Only this goroutine writes; the reader reports activity and closure.
	pongs := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(4096)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}()

	write := func(env envelope) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(env)
	}
	if err := write(envelope{Type: "connected", Message: "Connected to signal stream"}); err != nil {
		return
	}

	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		var env envelope
		select {
		case sig, ok := <-signals:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			env = envelope{Type: "signal", Data: &sig}
		case <-pongs:
			env = envelope{Type: "pong"}
		case <-ticker.C:
			env = envelope{Type: "ping"}
		case <-done:
			return
		}
		if err := write(env); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return
		}
	}
}
