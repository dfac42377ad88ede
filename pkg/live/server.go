package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Server broadcasts viewport state to browser sessions over WebSocket and
// hands their selection requests to a handler.
type Server struct {
	upgrader websocket.Upgrader
	sessions map[string]*Session
	mu       sync.RWMutex

	last    *State
	onEvent func(Event)
	logger  *slog.Logger
}

// Session is one connected client
type Session struct {
	ID        string
	conn      *websocket.Conn
	sendChan  chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server's logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithEventHandler sets the function receiving client requests. It is
// called on the session's read goroutine.
func WithEventHandler(fn func(Event)) Option {
	return func(s *Server) { s.onEvent = fn }
}

// NewServer creates a live server
func NewServer(opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[string]*Session),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleWebSocket upgrades the request and serves the session until the
// client goes away. The session id is the last path segment, or a new one
// when it is empty.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	if id == "" {
		id = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	session := &Session{
		ID:        id,
		conn:      conn,
		sendChan:  make(chan []byte, 64),
		closeChan: make(chan struct{}),
	}
	s.addSession(session)
	s.logger.Debug("session connected", "session", id)

	go session.writer(s.logger)

	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		session.send(s.encodeState(last))
	}

	s.readLoop(session)
}

func (s *Server) addSession(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions[session.ID]; ok {
		old.close()
	}
	s.sessions[session.ID] = session
}

func (s *Server) removeSession(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[session.ID] == session {
		delete(s.sessions, session.ID)
	}
}

// Sessions returns the number of connected clients
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Broadcast sends state to every session and remembers it for new ones
func (s *Server) Broadcast(state State) {
	data := s.encodeState(&state)

	s.mu.Lock()
	s.last = &state
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		if !session.send(data) {
			s.logger.Warn("dropping slow session", "session", session.ID)
			session.close()
		}
	}
}

// Close disconnects every session
func (s *Server) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
}

func (s *Server) encodeState(state *State) []byte {
	data, err := json.Marshal(Message{Type: MessageState, State: state})
	if err != nil {
		// State only holds plain fields
		panic(err)
	}
	return data
}

func (s *Server) readLoop(session *Session) {
	defer func() {
		session.close()
		s.removeSession(session)
		s.logger.Debug("session closed", "session", session.ID)
	}()

	session.conn.SetReadDeadline(time.Now().Add(pongWait))
	session.conn.SetPongHandler(func(string) error {
		session.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("unexpected close", "session", session.ID, "err", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("ignoring malformed message", "session", session.ID, "err", err)
			continue
		}
		s.handleMessage(session, msg)
	}
}

func (s *Server) handleMessage(session *Session, msg Message) {
	switch msg.Type {
	case MessagePing:
		data, _ := json.Marshal(Message{Type: MessagePong})
		session.send(data)
	case MessageSelectNode, MessageSelectEdge, MessageFocus, MessageClick:
		if s.onEvent != nil {
			s.onEvent(Event{Session: session.ID, Type: msg.Type, ID: msg.ID, X: msg.X, Y: msg.Y})
		}
	default:
		s.logger.Debug("unknown message", "session", session.ID, "type", msg.Type)
	}
}

// send queues data without blocking. It reports false when the session's
// queue is full or the session is closed.
func (s *Session) send(data []byte) bool {
	select {
	case <-s.closeChan:
		return false
	default:
	}
	select {
	case s.sendChan <- data:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
	})
}

// writer owns all writes to the connection
func (s *Session) writer(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message := <-s.sendChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("write failed", "session", s.ID, "err", err)
				s.close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}

		case <-s.closeChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
