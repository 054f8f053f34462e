package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-handcam/internal/log"
	"github.com/teslashibe/go-handcam/pkg/mempool"
)

const wsDialTimeout = 10 * time.Second

// WSCam acquires frames from a camera service that pushes JPEG frames
// as binary websocket messages. A reader goroutine keeps the most
// recent frame; Acquire waits for a frame newer than the last one
// handed out, so the loop never processes the same capture twice.
type WSCam struct {
	url   string
	alloc mempool.Allocator

	ws *websocket.Conn

	mu          sync.Mutex
	latest      []byte
	latestSeq   uint64
	servedSeq   uint64
	outstanding int
	closed      bool
	readErr     error

	notify chan struct{}
	done   chan struct{}
}

// DialWSCam connects to the camera service at url.
func DialWSCam(url string, alloc mempool.Allocator) (*WSCam, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: wsDialTimeout,
	}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial camera service: %w", err)
	}

	c := &WSCam{
		url:    url,
		alloc:  alloc,
		ws:     ws,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSCam) readLoop() {
	logger := log.Component("camera")
	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.readErr = err
				logger.Warn("camera stream read failed", "url", c.url, "error", err)
			}
			c.mu.Unlock()
			close(c.done)
			return
		}
		if kind != websocket.BinaryMessage || len(msg) == 0 {
			continue
		}

		c.mu.Lock()
		c.latest = msg
		c.latestSeq++
		c.mu.Unlock()

		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
}

// Acquire blocks until an unseen frame is available, then copies it
// into a pool buffer.
func (c *WSCam) Acquire(ctx context.Context) (*Frame, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		// A frame that arrived before the stream died still gets served.
		if c.latestSeq > c.servedSeq {
			frame, err := c.takeLatestLocked()
			c.mu.Unlock()
			return frame, err
		}
		if c.readErr != nil {
			err := c.readErr
			c.mu.Unlock()
			return nil, fmt.Errorf("camera stream: %w", err)
		}
		select {
		case <-c.done:
			c.mu.Unlock()
			return nil, ErrNoFrame
		default:
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
		case <-c.notify:
		}
	}
}

// takeLatestLocked copies the newest payload into a pool buffer.
// Caller holds c.mu.
func (c *WSCam) takeLatestLocked() (*Frame, error) {
	buf, err := c.alloc.Alloc(len(c.latest))
	if err != nil {
		return nil, fmt.Errorf("frame buffer: %w", err)
	}
	copy(buf, c.latest)
	c.servedSeq = c.latestSeq
	c.outstanding++
	return newFrame(buf, c.servedSeq, c.releaseBuf), nil
}

func (c *WSCam) releaseBuf(f *Frame) {
	c.alloc.Free(f.Data)
	c.mu.Lock()
	c.outstanding--
	c.mu.Unlock()
}

// Outstanding reports frames acquired but not yet released.
func (c *WSCam) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

// Close shuts down the websocket connection.
func (c *WSCam) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.ws.Close()
}
