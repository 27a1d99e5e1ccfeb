package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/streamcap/internal/server"
)

// blockingRecognizer never returns from TranscribeChunk until release is
// closed, letting tests hold a worker slot open deliberately.
type blockingRecognizer struct {
	release chan struct{}
	onClose func()
}

func (b *blockingRecognizer) TranscribeChunk(ctx context.Context, _ []float32) (string, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return "", nil
}

func (b *blockingRecognizer) FlushSampleCount() int { return 2560 }
func (b *blockingRecognizer) Reset()               {}

func (b *blockingRecognizer) Close() {
	if b.onClose != nil {
		b.onClose()
	}
}

func TestWithWorkers_LimitsConcurrentConnections(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	active := 0
	maxActive := 0

	factory := func() (server.Recognizer, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		return &blockingRecognizer{release: release, onClose: func() {
			mu.Lock()
			active--
			mu.Unlock()
		}}, nil
	}

	h := server.NewHandler(factory, server.WithWorkers(1))
	ts := httptest.NewServer(h)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/ws/transcribe"

	// Open two connections concurrently; the second should queue behind
	// the worker semaphore rather than both proceeding at once.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			samples := make([]byte, 4)
			_ = conn.WriteMessage(websocket.BinaryMessage, samples)
			time.Sleep(50 * time.Millisecond)
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxActive > 1 {
		t.Errorf("max concurrent recognizer constructions = %d, want at most 1 with WithWorkers(1)", maxActive)
	}
}

func TestWithMaxFrameBytes_RejectsOversizedFrame(t *testing.T) {
	factory := func() (server.Recognizer, error) { return &fakeRecognizer{}, nil }
	h := server.NewHandler(factory, server.WithMaxFrameBytes(8))
	ts := httptest.NewServer(h)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/ws/transcribe"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	oversized := make([]byte, 64)
	if err := conn.WriteMessage(websocket.BinaryMessage, oversized); err != nil {
		t.Fatalf("write: %v", err)
	}

	// An oversized frame trips gorilla/websocket's read limit, which closes
	// the connection instead of returning a normal message.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after an oversized frame")
	}
}

func TestHandleHealth_ReportsVersion(t *testing.T) {
	h := server.NewHandler(func() (server.Recognizer, error) { return &fakeRecognizer{}, nil })
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /health body: %v", err)
	}
	if body["version"] == "" {
		t.Errorf("/health body %v has no version", body)
	}
}
