package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/guidoenr/micshift/internal/broadcast"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Server exposes the spectrum stream over HTTP: a static landing page when a
// web/ directory is present, and a WebSocket upgrade on /ws that attaches
// the connection to the broadcast hub.
type Server struct {
	addr     string
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	log      *logrus.Entry
	httpSrv  *http.Server
}

// NewServer creates a Server listening on addr (e.g. ":3030").
func NewServer(addr string, hub *broadcast.Hub, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		addr: addr,
		hub:  hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.WithField("component", "web"),
	}
}

// Run serves until the context is cancelled. Listen errors other than
// graceful shutdown are returned.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	webDir := findWebDir()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		index := filepath.Join(webDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			http.Error(w, "spectrum stream at /ws", http.StatusOK)
			return
		}
		http.ServeFile(w, r, index)
	})
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(webDir, "static")))))
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("web server listening")
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	wsc := &wsConn{conn: conn}
	client := s.hub.Add(wsc)

	go s.pingLoop(wsc, client)
	go s.readPump(conn, client)
}

// readPump consumes inbound frames until the peer goes away. No application
// messages are expected beyond the handshake.
func (s *Server) readPump(conn *websocket.Conn, client *broadcast.Client) {
	defer s.hub.Remove(client)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pingLoop keeps the connection alive; a failed ping lets readPump's
// deadline tear the client down.
func (s *Server) pingLoop(wsc *wsConn, client *broadcast.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := wsc.ping(); err != nil {
			s.hub.Remove(client)
			return
		}
	}
}

// wsConn adapts a gorilla connection to broadcast.Conn. Writes are
// serialized by the hub's single writer per client; ping uses WriteControl,
// which gorilla allows concurrently with data writes.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteText(data []byte) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

func (w *wsConn) ping() error {
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// findWebDir locates the browser assets next to the working directory or the
// binary, mirroring how the repo is usually run during development.
func findWebDir() string {
	if _, err := os.Stat("web/index.html"); err == nil {
		return "web"
	}
	if _, err := os.Stat("../web/index.html"); err == nil {
		return "../web"
	}
	if exe, err := os.Executable(); err == nil {
		webPath := filepath.Join(filepath.Dir(exe), "web")
		if _, err := os.Stat(filepath.Join(webPath, "index.html")); err == nil {
			return webPath
		}
	}
	return "web"
}
