package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 << 10,
	// The feed is read-only and carries no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerServer serves the snapshot feed over WebSocket at /ws.
// New viewers are handed to the tick goroutine through a channel; the viewer
// list itself is owned by the tick goroutine (Poll, Broadcast, Viewers).
type ViewerServer struct {
	listener net.Listener
	http     *http.Server
	nextID   atomic.Uint64
	newConns chan *Viewer
	outSize  int
	viewers  []*Viewer
	log      *zap.Logger
}

func NewViewerServer(bindAddr string, outSize int, log *zap.Logger) (*ViewerServer, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", bindAddr, err)
	}
	s := &ViewerServer{
		listener: ln,
		newConns: make(chan *Viewer, 64),
		outSize:  outSize,
		log:      log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{Handler: mux}
	return s, nil
}

// Start serves in its own goroutine.
func (s *ViewerServer) Start() {
	go func() {
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("觀看服務停止", zap.Error(err))
		}
	}()
}

func (s *ViewerServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade 失敗", zap.Error(err))
		return
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	id := s.nextID.Add(1)
	v := NewViewer(conn, id, ip, s.outSize, s.log)
	v.Start()

	s.log.Info(fmt.Sprintf("觀看者連線  viewer=%d  ip=%s", id, ip))

	select {
	case s.newConns <- v:
	default:
		s.log.Warn("連線佇列已滿，拒絕新連線")
		v.Close()
	}
}

// Poll adopts newly connected viewers and forgets closed ones. Tick
// goroutine only.
func (s *ViewerServer) Poll() {
adopt:
	for {
		select {
		case v := <-s.newConns:
			s.viewers = append(s.viewers, v)
		default:
			break adopt
		}
	}
	live := s.viewers[:0]
	for _, v := range s.viewers {
		if v.IsClosed() {
			s.log.Info("觀看者離線", zap.Uint64("viewer", v.ID))
			continue
		}
		live = append(live, v)
	}
	clear(s.viewers[len(live):])
	s.viewers = live
}

// Broadcast polls, then queues payload to every viewer. Tick goroutine only.
func (s *ViewerServer) Broadcast(payload []byte) {
	s.Poll()
	for _, v := range s.viewers {
		v.Send(payload)
	}
}

// Viewers is the number of adopted viewers as of the last Poll.
func (s *ViewerServer) Viewers() int { return len(s.viewers) }

// Addr returns the listener's address.
func (s *ViewerServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Shutdown stops accepting viewers and disconnects the adopted ones.
func (s *ViewerServer) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.Poll()
	for _, v := range s.viewers {
		v.Close()
	}
	s.viewers = nil
	return err
}
