// Package editfeed accepts record edits from an external editor over a websocket and applies them
// to the running module.
package editfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/records"
	"github.com/gorilla/websocket"
)

// Path is the endpoint the feed serves.
const Path = "/edits"

// Applier applies one edit to the live records.
type Applier interface {
	ApplyEdit(edit records.Edit) error
}

// Reply is sent back for every message received.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Update is sent to every other connected editor after an edit is applied.
type Update struct {
	Applied records.Edit `json:"applied"`
}

// Server is the websocket edit feed.
type Server struct {
	addr     string
	applier  Applier
	upgrader websocket.Upgrader
	log      *slog.Logger

	// clients maps each connection to the mutex serializing its writes.
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewServer creates a Server.
//
// Parameters:
//   - addr: the listen address used by ListenAndServe
//   - applier: receives every decoded edit
//   - options: ServerOption values
//
// Returns:
//   - *Server: the server
func NewServer(addr string, applier Applier, options ...ServerOption) *Server {
	if applier == nil {
		panic("editfeed: applier cannot be nil")
	}
	s := &Server{
		addr:    addr,
		applier: applier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log:     common.ComponentLogger("editfeed"),
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Handler returns the feed's HTTP handler for embedding in another server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.serveEdits)
	return mux
}

// ListenAndServe serves the feed until ctx is cancelled, then closes every open connection.
//
// Parameters:
//   - ctx: stops the server when cancelled
//
// Returns:
//   - error: a listen error, or nil after a clean shutdown
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("editfeed: listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	s.log.Info("edit feed listening", slog.String("addr", ln.Addr().String()), slog.String("path", Path))
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return fmt.Errorf("editfeed: %w", err)
}

func (s *Server) serveEdits(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	connMu := &sync.Mutex{}
	s.mu.Lock()
	s.clients[conn] = connMu
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("edit feed read failed", slog.Any("err", err))
			}
			return
		}
		reply, edit := s.handle(msg)
		connMu.Lock()
		err = conn.WriteJSON(reply)
		connMu.Unlock()
		if err != nil {
			s.log.Warn("edit feed write failed", slog.Any("err", err))
			return
		}
		if reply.OK {
			s.broadcast(conn, Update{Applied: edit})
		}
	}
}

// handle decodes and applies one message. The decoded edit is returned with the reply.
func (s *Server) handle(msg []byte) (Reply, records.Edit) {
	var edit records.Edit
	if err := json.Unmarshal(msg, &edit); err != nil {
		return Reply{Error: fmt.Sprintf("decoding edit: %v", err)}, edit
	}
	if err := s.applier.ApplyEdit(edit); err != nil {
		s.log.Debug("edit rejected", slog.String("op", string(edit.Op)), slog.Any("err", err))
		return Reply{Error: err.Error()}, edit
	}
	s.log.Debug("edit applied", slog.String("op", string(edit.Op)), slog.String("kind", string(edit.Kind)), slog.Int("index", edit.Index))
	return Reply{OK: true}, edit
}

// broadcast sends an update to every client except from. Clients that fail the write are closed;
// their read loops then remove them.
func (s *Server) broadcast(from *websocket.Conn, u Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c, connMu := range s.clients {
		if c == from {
			continue
		}
		connMu.Lock()
		err := c.WriteJSON(u)
		connMu.Unlock()
		if err != nil {
			s.log.Warn("edit feed broadcast failed", slog.String("remote", c.RemoteAddr().String()), slog.Any("err", err))
			c.Close()
		}
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(time.Second))
		c.Close()
	}
}
