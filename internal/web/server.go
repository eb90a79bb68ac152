// Package web serves a small control panel: JSON status and updates over
// HTTP plus a websocket feed of the status twice a second.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/sortwave/internal/analyzer"
	"github.com/guidoenr/sortwave/internal/params"
	"github.com/guidoenr/sortwave/internal/pixelsort"
)

//go:embed static
var staticFiles embed.FS

const broadcastInterval = 500 * time.Millisecond

// Status is what the panel shows.
type Status struct {
	FPS      float64           `json:"fps"`
	Level    uint8             `json:"level"`
	Low      uint8             `json:"low"`
	Rotation int               `json:"rotation"`
	Key      string            `json:"key"`
	Paused   bool              `json:"paused"`
	Source   string            `json:"source"`
	Fault    string            `json:"fault,omitempty"`
	Bands    analyzer.Features `json:"bands"` // display only
}

// UpdateRequest changes any subset of the sort parameters.
type UpdateRequest struct {
	Low      *int    `json:"low,omitempty"`
	Rotation *int    `json:"rotation,omitempty"`
	Key      *string `json:"key,omitempty"`
	Paused   *bool   `json:"paused,omitempty"`
}

// StatusSource is implemented by the running app.
type StatusSource interface {
	Status() Status
	Params() *params.Store
}

type Server struct {
	mu        sync.RWMutex
	src       StatusSource
	log       *log.Logger
	clients   map[*websocketClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	handler   http.Handler
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

func NewServer(src StatusSource, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		src:       src,
		log:       logger,
		clients:   make(map[*websocketClient]bool),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	static, _ := fs.Sub(staticFiles, "static")
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/update", s.handleUpdate)
	mux.HandleFunc("/api/keys", s.handleKeys)
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.handler = mux
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Printf("[web] control panel on http://%s", ln.Addr())

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.broadcastLoop(loopCtx)
	go s.statusUpdateLoop(loopCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		err := srv.Shutdown(shutdownCtx)
		s.closeClients()
		return err
	case err := <-errCh:
		s.closeClients()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Status())
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var key pixelsort.SortKey
	if req.Key != nil {
		k, err := pixelsort.ParseSortKey(*req.Key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key = k
	}
	if req.Low != nil && (*req.Low < 0 || *req.Low > 255) {
		http.Error(w, fmt.Sprintf("low %d out of range 0..255", *req.Low), http.StatusBadRequest)
		return
	}

	p, err := s.src.Params().Update(func(p *params.Parameters) {
		if req.Low != nil {
			p.Low = uint8(*req.Low)
		}
		if req.Rotation != nil {
			p.Rotation = pixelsort.Rotation(*req.Rotation)
		}
		if req.Key != nil {
			p.Key = key
		}
		if req.Paused != nil {
			p.Paused = *req.Paused
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Printf("[web] parameters updated: low=%d rotation=%d key=%s paused=%t", p.Low, int(p.Rotation), p.Key, p.Paused)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pixelsort.SortKeyNames())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[web] websocket upgrade error: %v", err)
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

// ClientCount reports connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					s.dropLocked(client)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) statusUpdateLoop(ctx context.Context) {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		data, err := json.Marshal(s.src.Status())
		if err != nil {
			continue
		}
		select {
		case s.broadcast <- data:
		default:
			// slow consumers; drop this tick
		}
	}
}

// dropLocked unregisters c and ends its write pump. s.mu must be held.
func (s *Server) dropLocked(c *websocketClient) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		s.dropLocked(client)
	}
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.mu.Lock()
		c.server.dropLocked(c)
		c.server.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
