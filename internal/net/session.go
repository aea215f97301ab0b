package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Viewer is one connected render client. Network I/O runs in dedicated
// goroutines; Send is called only from the tick goroutine.
type Viewer struct {
	ID   uint64
	conn *websocket.Conn
	IP   string

	OutQueue chan []byte // writer goroutine reads from here

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewViewer(conn *websocket.Conn, id uint64, ip string, outSize int, log *zap.Logger) *Viewer {
	return &Viewer{
		ID:       id,
		conn:     conn,
		IP:       ip,
		OutQueue: make(chan []byte, outSize),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("viewer", id)),
	}
}

// Start launches the reader and writer goroutines.
func (v *Viewer) Start() {
	go v.readLoop()
	go v.writeLoop()
}

// Send queues one binary message. Non-blocking: if OutQueue is full the
// viewer is disconnected (backpressure).
func (v *Viewer) Send(data []byte) {
	if v.closed.Load() {
		return
	}
	select {
	case v.OutQueue <- data:
	default:
		v.log.Warn("輸出佇列已滿，斷開慢速連線")
		v.Close()
	}
}

// Close gracefully shuts down the viewer.
func (v *Viewer) Close() {
	v.closeOnce.Do(func() {
		v.closed.Store(true)
		close(v.closeCh)
		if v.conn != nil {
			v.conn.Close()
		}
	})
}

func (v *Viewer) IsClosed() bool {
	return v.closed.Load()
}

// readLoop discards anything the client sends; it exists to service
// pongs and notice the peer going away.
func (v *Viewer) readLoop() {
	defer v.Close()

	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !v.closed.Load() {
				v.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
	}
}

// writeLoop writes queued snapshots and periodic pings.
func (v *Viewer) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.Close()
	}()

	for {
		select {
		case data := <-v.OutQueue:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				if !v.closed.Load() {
					v.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-v.closeCh:
			return
		}
	}
}
