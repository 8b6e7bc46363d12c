package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"qkd-demo/common"
	"qkd-demo/configs"
)

type Server struct {
	ctx       context.Context
	cancelCtx context.CancelFunc

	journal        Journal
	connectedUsers map[string]*peer
	mutex          *sync.Mutex
	logger         *logrus.Logger
	session        *session
	metrics        *Metrics

	// WebSocket upgrader settings
	upgrader *websocket.Upgrader
}

// peer is one connected page. writes are serialized by lock.
type peer struct {
	id   string
	ws   *websocket.Conn
	lock sync.Mutex
}

func (c *peer) write(frame []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.writeLocked(frame)
}

func (c *peer) writeLocked(frame []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(configs.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// NewServer creates a relay. journal may be nil, which disables replay.
func NewServer(ctx context.Context, journal Journal, metrics *Metrics, logger *logrus.Logger) *Server {
	ctx, cancelCtx := context.WithCancel(ctx)
	return &Server{
		ctx:            ctx,
		cancelCtx:      cancelCtx,
		journal:        journal,
		connectedUsers: make(map[string]*peer),
		mutex:          &sync.Mutex{},
		logger:         logger,
		session:        &session{},
		metrics:        metrics,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router returns the HTTP routes served by the relay
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(configs.WebSocketPath, s.HandleConnections)
	r.HandleFunc(configs.HealthPath, s.HandleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle(configs.MetricsPath, promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Handle incoming WebSocket connections
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP request to WebSocket
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Error upgrading to WebSocket: %v", err)
		return
	}
	defer ws.Close()

	c := &peer{id: uuid.NewString(), ws: ws}
	s.register(c)
	s.metrics.clientConnected()
	s.logger.Infof("Client %s connected", c.id)

	// Idle pages are kept alive by pings; a missing pong ends the read loop
	readTimeout := configs.ReadTimeout
	if err := ws.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		s.logger.Errorf("Error setting read deadline for client %s: %v", c.id, err)
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})
	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(c, readTimeout*9/10, done)

	// Listen for incoming events
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Errorf("Error reading message from client %s: %v", c.id, err)
			}
			break
		}

		env, err := common.DecodeEnvelope(message)
		if err != nil {
			s.logger.Errorf("Invalid message format from client %s: %v", c.id, err)
			continue
		}

		s.logger.Debugf("Received %s from client %s: %s", env.Name, c.id, env.Payload())
		s.metrics.eventReceived(env.Name)
		s.handleEvent(env.Name, env.Payload())
	}

	// Remove client from connectedUsers map when they disconnect
	s.mutex.Lock()
	delete(s.connectedUsers, c.id)
	s.mutex.Unlock()
	s.metrics.clientDisconnected()
	s.logger.Infof("Client %s disconnected", c.id)
}

// keepAlive pings the client every period until done is closed
func (s *Server) keepAlive(c *peer, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.lock.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(configs.WriteTimeout))
			c.lock.Unlock()
			if err != nil {
				s.logger.Debugf("Error pinging client %s: %v", c.id, err)
				return
			}
		}
	}
}

// HandleHealth reports whether the relay is serving
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	clients := len(s.connectedUsers)
	s.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": clients}); err != nil {
		s.logger.Errorf("Error encoding health response: %v", err)
	}
}

func (s *Server) Close() {
	s.cancelCtx()
	// Close all WebSocket connections
	s.mutex.Lock()
	for _, c := range s.connectedUsers {
		c.ws.Close()
	}
	s.mutex.Unlock()
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Errorf("Error closing journal: %v", err)
		}
	}
}

// broadcast sends an event to every connected client, the sender included,
// and records it in the journal
func (s *Server) broadcast(name string, payload any) {
	env, err := common.NewEnvelope(name, payload)
	if err != nil {
		s.logger.Errorf("Error building %s: %v", name, err)
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		s.logger.Errorf("Error marshalling %s: %v", name, err)
		return
	}

	// Journal and snapshot together so a joining client sees each frame once
	s.mutex.Lock()
	if s.journal != nil && journaled(name) {
		if err := s.journal.Append(s.ctx, frame); err != nil {
			s.metrics.journalError()
			s.logger.Errorf("Error journaling %s: %v", name, err)
		}
	}
	recipients := make([]*peer, 0, len(s.connectedUsers))
	for _, c := range s.connectedUsers {
		recipients = append(recipients, c)
	}
	s.mutex.Unlock()

	for _, c := range recipients {
		if err := c.write(frame); err != nil {
			s.logger.Errorf("Error sending %s to client %s: %v", name, c.id, err)
		}
	}
	s.metrics.eventBroadcast(name)
}

// journaled reports whether a broadcast is kept for late joiners. The Eve
// echo is live only: replaying it would make the page acknowledge it again.
func journaled(name string) bool {
	return name != common.EventEveReceiveEncrypted
}

// register adds c to the recipients and replays the journal to it. Live
// frames broadcast meanwhile wait on c.lock and follow the replay.
func (s *Server) register(c *peer) {
	s.mutex.Lock()
	frames := s.readJournal(c)
	s.connectedUsers[c.id] = c
	c.lock.Lock()
	s.mutex.Unlock()
	defer c.lock.Unlock()

	for _, frame := range frames {
		if err := c.writeLocked(frame); err != nil {
			s.logger.Errorf("Error replaying journal to client %s: %v", c.id, err)
			return
		}
	}
}

// Retrieve journaled events for a client when it connects
func (s *Server) readJournal(c *peer) [][]byte {
	if s.journal == nil {
		return nil
	}
	frames, err := s.journal.Replay(s.ctx)
	if err != nil {
		s.metrics.journalError()
		s.logger.Errorf("Error retrieving journal for client %s: %v", c.id, err)
		return nil
	}
	return frames
}

// resetJournal starts a new exchange: frames of the previous one are not
// replayed to clients joining later
func (s *Server) resetJournal() {
	if s.journal == nil {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.journal.Reset(s.ctx); err != nil {
		s.metrics.journalError()
		s.logger.Errorf("Error resetting journal: %v", err)
	}
}
