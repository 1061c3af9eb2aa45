package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WSRequest is a text frame request. Binary frames carry the image
// bytes directly.
type WSRequest struct {
	Image []byte `json:"image"` // base64 in JSON
}

// WSMessage is sent to the client for each phase event, the final result
// or an error.
type WSMessage struct {
	Type      string           `json:"type"` // phase, result, error
	Phase     string           `json:"phase,omitempty"`
	Status    string           `json:"status,omitempty"` // started, finished, failed
	DurationS float64          `json:"duration_s,omitempty"`
	Error     string           `json:"error,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return s.cfg.CORSOrigin == "*" || origin == "" || origin == s.cfg.CORSOrigin
		},
	}
}

// wsHandler streams phase progress for every card sent on the socket.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	websocketConnections.Inc()
	defer websocketConnections.Dec()

	conn.SetReadLimit(s.cfg.MaxUploadMB<<20 + 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)) != nil {
					return
				}
			}
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if mt == websocket.TextMessage {
			var req WSRequest
			if err := json.Unmarshal(data, &req); err != nil {
				sendWS(conn, WSMessage{Type: "error", Error: "invalid request: " + err.Error()})
				continue
			}
			data = req.Image
		}
		s.streamCard(r, conn, data)
	}
}

func (s *Server) streamCard(r *http.Request, conn *websocket.Conn, data []byte) {
	img, err := pipeline.Decode(data)
	if err != nil {
		sendWS(conn, WSMessage{Type: "error", Error: err.Error()})
		return
	}
	ctx, cancel := s.extractionContext(r.Context())
	defer cancel()
	res := s.ext.Stream(ctx, img, wsObserver{conn: conn})
	recordResult("websocket", res)
	s.save(r, kyc.NewRecord(res, ""))
	sendWS(conn, WSMessage{Type: "result", Result: res})
}

type wsObserver struct {
	metricsObserver
	conn *websocket.Conn
}

func (o wsObserver) PhaseStarted(p pipeline.Phase) {
	sendWS(o.conn, WSMessage{Type: "phase", Phase: p.String(), Status: "started"})
}

func (o wsObserver) PhaseFinished(p pipeline.Phase, d time.Duration, err error) {
	o.metricsObserver.PhaseFinished(p, d, err)
	msg := WSMessage{Type: "phase", Phase: p.String(), Status: "finished", DurationS: d.Seconds()}
	if err != nil {
		msg.Status, msg.Error = "failed", err.Error()
	}
	sendWS(o.conn, msg)
}

func sendWS(conn *websocket.Conn, msg WSMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		slog.Debug("websocket write failed", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
