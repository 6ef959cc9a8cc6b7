// Package web serves the browser monitor: an embedded control page, a small
// JSON API over the shared controls and a websocket that streams status
// snapshots plus PNG-encoded frames.
package web

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"image"
	"image/png"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hexvane/oxidescope/internal/params"
	"github.com/hexvane/oxidescope/internal/pipeline"
	"github.com/hexvane/oxidescope/internal/render"
)

//go:embed index.html
var indexHTML []byte

// App is the application surface the server reads and drives.
type App interface {
	Stats() pipeline.Stats
	Controls() *params.Controls
}

// Config assembles a Server.
type Config struct {
	Addr string
	App  App
	Log  *log.Logger

	// StatusInterval is the websocket status push period; zero means 500ms.
	StatusInterval time.Duration
	// FrameInterval is the websocket frame push period; zero means 100ms.
	FrameInterval time.Duration
}

// wsMessage pairs a websocket message type with its payload so one send
// channel carries both status JSON and binary PNG frames.
type wsMessage struct {
	kind int
	data []byte
}

// Server is the web monitor. Start blocks serving HTTP; Close shuts the
// listener and the push loops down.
type Server struct {
	app App
	log *log.Logger

	statusInterval time.Duration
	frameInterval  time.Duration

	mux      *http.ServeMux
	httpSrv  *http.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	clients   map[*client]bool
	broadcast chan wsMessage

	frameMu    sync.Mutex
	frame      *image.RGBA
	frameDirty bool
	scratch    *image.RGBA

	done      chan struct{}
	closeOnce sync.Once
}

type client struct {
	conn   *websocket.Conn
	send   chan wsMessage
	server *Server
}

// UpdateRequest is a partial control update; nil fields stay unchanged.
type UpdateRequest struct {
	Mode        *int  `json:"mode,omitempty"`
	Degradation *int  `json:"degradation,omitempty"`
	Bypassed    *bool `json:"bypassed,omitempty"`
}

// statusPayload is one status push. The feature keys match the names the
// render side consumes, so the page can label them directly.
type statusPayload struct {
	Type          string  `json:"type"`
	FPS           float64 `json:"fps"`
	Mode          int     `json:"mode"`
	Palette       string  `json:"palette"`
	Degradation   int     `json:"degradation"`
	Bypassed      bool    `json:"bypassed"`
	RMS           float64 `json:"rms"`
	Peak          float64 `json:"peak"`
	WobblePhase   float64 `json:"wobblePhase"`
	Crackle       float64 `json:"crackleActivity"`
	Frames        uint64  `json:"frames"`
	Skipped       uint64  `json:"skipped"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// NewServer builds the monitor around the app. Nothing listens until Start.
func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stdout, "", log.LstdFlags)
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 500 * time.Millisecond
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 100 * time.Millisecond
	}

	s := &Server{
		app:            cfg.App,
		log:            cfg.Log,
		statusInterval: cfg.StatusInterval,
		frameInterval:  cfg.FrameInterval,
		mux:            http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients:   make(map[*client]bool),
		broadcast: make(chan wsMessage, 256),
		done:      make(chan struct{}),
	}

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/update", s.handleUpdate)
	s.mux.HandleFunc("/api/palettes", s.handlePalettes)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpSrv = &http.Server{Addr: cfg.Addr, Handler: s.mux}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// FrameTap returns the tap the pipeline calls with each finished frame. The
// tap copies the pixels; the frame loop encodes and pushes them at its own
// pace so slow clients never stall the render loop.
func (s *Server) FrameTap() pipeline.FrameTap {
	return func(img *image.RGBA) {
		s.frameMu.Lock()
		if s.frame == nil || s.frame.Bounds() != img.Bounds() {
			s.frame = image.NewRGBA(img.Bounds())
		}
		copy(s.frame.Pix, img.Pix)
		s.frameDirty = true
		s.frameMu.Unlock()
	}
}

// Start serves HTTP on the configured address and blocks until Close or a
// listener error.
func (s *Server) Start() error {
	go s.broadcastLoop()
	go s.statusLoop()
	go s.frameLoop()

	addr := s.httpSrv.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "0.0.0.0" + addr
	}
	s.log.Printf("web monitor on http://%s", addr)
	return s.httpSrv.ListenAndServe()
}

// Close stops the listener and the push loops. Idempotent.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.httpSrv.Close()
	})
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.statusNow())
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

	ctl := s.app.Controls()
	if req.Mode != nil {
		ctl.SetMode(*req.Mode)
	}
	if req.Degradation != nil {
		ctl.SetDegradation(*req.Degradation)
	}
	if req.Bypassed != nil {
		ctl.SetBypassed(*req.Bypassed)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(render.PaletteNames())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("websocket upgrade: %v", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan wsMessage, 32),
		server: s,
	}

	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	// Seed the connection with a status snapshot so the page renders
	// immediately instead of waiting out the first push interval.
	if data, err := json.Marshal(s.statusNow()); err == nil {
		c.send <- wsMessage{kind: websocket.TextMessage, data: data}
	}

	go c.writePump()
	go c.readPump()
}

func (s *Server) statusNow() statusPayload {
	st := s.app.Stats()
	ctl := s.app.Controls()
	return statusPayload{
		Type:          "status",
		FPS:           st.FPS,
		Mode:          st.Mode,
		Palette:       st.Palette,
		Degradation:   ctl.Degradation(),
		Bypassed:      ctl.Bypassed(),
		RMS:           st.Features.RMS,
		Peak:          st.Features.Peak,
		WobblePhase:   st.Features.WobblePhase,
		Crackle:       st.Features.Crackle,
		Frames:        st.Frames,
		Skipped:       st.Skipped,
		UptimeSeconds: st.Uptime.Seconds(),
	}
}

func (s *Server) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.broadcast:
			s.mu.Lock()
			for c := range s.clients {
				select {
				case c.send <- msg:
				default:
					delete(s.clients, c)
					close(c.send)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) statusLoop() {
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			data, err := json.Marshal(s.statusNow())
			if err != nil {
				continue
			}
			select {
			case s.broadcast <- wsMessage{kind: websocket.TextMessage, data: data}:
			default:
			}
		}
	}
}

// frameLoop throttles frame pushes: the newest tapped frame is encoded at
// most once per interval, and only while someone is connected.
func (s *Server) frameLoop() {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			watching := len(s.clients) > 0
			s.mu.Unlock()
			if !watching {
				continue
			}

			s.frameMu.Lock()
			if !s.frameDirty || s.frame == nil {
				s.frameMu.Unlock()
				continue
			}
			if s.scratch == nil || s.scratch.Bounds() != s.frame.Bounds() {
				s.scratch = image.NewRGBA(s.frame.Bounds())
			}
			copy(s.scratch.Pix, s.frame.Pix)
			s.frameDirty = false
			s.frameMu.Unlock()

			var buf bytes.Buffer
			if err := png.Encode(&buf, s.scratch); err != nil {
				s.log.Printf("frame encode: %v", err)
				continue
			}
			select {
			case s.broadcast <- wsMessage{kind: websocket.BinaryMessage, data: buf.Bytes()}:
			default:
			}
		}
	}
}

// unregister drops the client from the broadcast set; the membership check
// keeps the send channel from closing twice.
func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

func (c *client) readPump() {
	defer func() {
		c.server.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
