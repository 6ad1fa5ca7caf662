package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	models "VolSurf/internal/domain/models"
	domrepo "VolSurf/internal/domain/repository"
	xlogger "VolSurf/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamSendBuffer = 4
)

// streamFrame is the envelope of every message pushed to subscribers.
type streamFrame struct {
	Type string               `json:"type"`
	Data *models.GridSnapshot `json:"data"`
}

type streamClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// SurfaceStream pushes grid snapshots to WebSocket subscribers. A new
// subscriber first receives the latest snapshot. A subscriber that falls
// behind by more than a few frames is disconnected.
type SurfaceStream struct {
	upgrader websocket.Upgrader
	logger   *xlogger.Logger
	metrics  domrepo.Metrics

	mu      sync.Mutex
	clients map[string]*streamClient
	latest  []byte
	closed  bool
}

// NewSurfaceStream creates the hub. metrics may be nil.
func NewSurfaceStream(logger *xlogger.Logger, metrics domrepo.Metrics) *SurfaceStream {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SurfaceStream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics,
		clients: make(map[string]*streamClient),
	}
}

// Broadcast implements usecase.GridSink.
func (s *SurfaceStream) Broadcast(snap *models.GridSnapshot) {
	b, err := json.Marshal(streamFrame{Type: "grid", Data: snap})
	if err != nil {
		s.logger.Error("encode stream frame", xlogger.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = b
	for id, cl := range s.clients {
		select {
		case cl.send <- b:
		default:
			s.logger.Warn("stream subscriber too slow, dropping", xlogger.String("subscriber", id))
			s.removeLocked(cl)
		}
	}
}

// Serve upgrades the request and blocks until the subscriber goes away.
func (s *SurfaceStream) Serve(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the error response
		return nil
	}

	cl := &streamClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, streamSendBuffer),
	}
	if !s.add(cl) {
		_ = conn.Close()
		return nil
	}
	s.logger.Info("stream subscriber connected",
		xlogger.String("subscriber", cl.id),
		xlogger.String("remote", c.RealIP()),
	)

	go s.writePump(cl)
	s.readPump(cl)
	return nil
}

func (s *SurfaceStream) add(cl *streamClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.latest != nil {
		cl.send <- s.latest
	}
	s.clients[cl.id] = cl
	s.reportLocked()
	return true
}

func (s *SurfaceStream) remove(cl *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(cl)
}

// removeLocked closes the send channel exactly once; sends only happen under
// s.mu, so none can race with the close.
func (s *SurfaceStream) removeLocked(cl *streamClient) {
	if _, ok := s.clients[cl.id]; !ok {
		return
	}
	delete(s.clients, cl.id)
	close(cl.send)
	s.reportLocked()
}

func (s *SurfaceStream) reportLocked() {
	if s.metrics != nil {
		s.metrics.StreamClients(len(s.clients))
	}
}

// readPump discards client frames; it exists to process pongs and notice
// the connection closing.
func (s *SurfaceStream) readPump(cl *streamClient) {
	defer func() {
		s.remove(cl)
		_ = cl.conn.Close()
		s.logger.Info("stream subscriber disconnected", xlogger.String("subscriber", cl.id))
	}()

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *SurfaceStream) writePump(cl *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Len returns the number of connected subscribers.
func (s *SurfaceStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (s *SurfaceStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, cl := range s.clients {
		s.removeLocked(cl)
	}
}
