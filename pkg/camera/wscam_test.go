package camera

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// wscamServer is a fake camera service: it upgrades one connection
// and writes every payload sent on frames as a binary message.
// Closing frames hangs up on the client.
type wscamServer struct {
	srv    *httptest.Server
	frames chan []byte
}

func newWSCamServer(t *testing.T) *wscamServer {
	t.Helper()
	s := &wscamServer{frames: make(chan []byte, 16)}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for payload := range s.frames {
			if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wscamServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func acquireTimeout(t *testing.T, cam *WSCam, d time.Duration) (*Frame, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return cam.Acquire(ctx)
}

func TestWSCamAcquireSequencing(t *testing.T) {
	srv := newWSCamServer(t)
	alloc := mempool.NewDefault(1<<20, 0)

	cam, err := DialWSCam(srv.url(), alloc)
	if err != nil {
		t.Fatalf("DialWSCam() error = %v", err)
	}
	defer cam.Close()

	srv.frames <- []byte("frame-1")
	f1, err := acquireTimeout(t, cam, 2*time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if string(f1.Data) != "frame-1" {
		t.Errorf("Data = %q, want frame-1", f1.Data)
	}
	f1.Release()

	// No new frame yet: the same capture is never handed out twice.
	if _, err := acquireTimeout(t, cam, 100*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() with no fresh frame = %v, want deadline exceeded", err)
	}

	srv.frames <- []byte("frame-2")
	f2, err := acquireTimeout(t, cam, 2*time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if string(f2.Data) != "frame-2" {
		t.Errorf("Data = %q, want frame-2", f2.Data)
	}
	if f2.Seq <= f1.Seq {
		t.Errorf("Seq = %d, want > %d", f2.Seq, f1.Seq)
	}
	f2.Release()

	if n := cam.Outstanding(); n != 0 {
		t.Errorf("Outstanding() = %d, want 0 after releases", n)
	}
	if alloc.FastInUse() != 0 {
		t.Errorf("FastInUse() = %d, want 0 after releases", alloc.FastInUse())
	}
}

func TestWSCamServesLatestFrameOnly(t *testing.T) {
	srv := newWSCamServer(t)
	cam, err := DialWSCam(srv.url(), mempool.NewDefault(1<<20, 0))
	if err != nil {
		t.Fatalf("DialWSCam() error = %v", err)
	}
	defer cam.Close()

	srv.frames <- []byte("stale-1")
	srv.frames <- []byte("stale-2")
	srv.frames <- []byte("fresh")
	// Let the reader catch up so all three are seen before Acquire.
	time.Sleep(250 * time.Millisecond)

	f, err := acquireTimeout(t, cam, 2*time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if string(f.Data) != "fresh" {
		t.Errorf("Data = %q, want fresh (stale frames skipped)", f.Data)
	}
	f.Release()

	// The skipped captures must not be served afterwards.
	if _, err := acquireTimeout(t, cam, 100*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() after draining = %v, want deadline exceeded", err)
	}
}

func TestWSCamStreamDeath(t *testing.T) {
	srv := newWSCamServer(t)
	cam, err := DialWSCam(srv.url(), mempool.NewDefault(1<<20, 0))
	if err != nil {
		t.Fatalf("DialWSCam() error = %v", err)
	}
	defer cam.Close()

	srv.frames <- []byte("last")
	close(srv.frames)

	// The frame delivered before the hang-up is still served.
	f, err := acquireTimeout(t, cam, 2*time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if string(f.Data) != "last" {
		t.Errorf("Data = %q, want last", f.Data)
	}
	f.Release()

	// After that, acquisition fails instead of blocking.
	_, err = acquireTimeout(t, cam, 2*time.Second)
	if err == nil {
		t.Fatal("Acquire() after stream death should error")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() blocked until the deadline: %v", err)
	}
}

func TestWSCamAcquireAfterClose(t *testing.T) {
	srv := newWSCamServer(t)
	cam, err := DialWSCam(srv.url(), mempool.NewDefault(1<<20, 0))
	if err != nil {
		t.Fatalf("DialWSCam() error = %v", err)
	}

	if err := cam.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := acquireTimeout(t, cam, time.Second); !errors.Is(err, ErrClosed) {
		t.Fatalf("Acquire() after Close = %v, want ErrClosed", err)
	}
}
