package server_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/streamcap/internal/server"
)

// fakeRecognizer is a minimal server.Recognizer used to drive the handler
// without a real ONNX session.
type fakeRecognizer struct {
	closed     bool
	resetCount int
	reply      string
	err        error
}

func (f *fakeRecognizer) TranscribeChunk(_ context.Context, samples []float32) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if len(samples) == 0 {
		return "", nil
	}
	return f.reply, nil
}

func (f *fakeRecognizer) FlushSampleCount() int { return 2560 }
func (f *fakeRecognizer) Reset()               { f.resetCount++ }
func (f *fakeRecognizer) Close()               { f.closed = true }

func newTestServer(t *testing.T, factory server.RecognizerFactory, opts ...server.Option) *httptest.Server {
	t.Helper()
	h := server.NewHandler(factory, opts...)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/transcribe"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func encodeSamples(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

func TestHandleHealth_ReportsOK(t *testing.T) {
	ts := newTestServer(t, func() (server.Recognizer, error) { return &fakeRecognizer{}, nil })

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
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestTranscribe_BinaryFrameYieldsDeltaJSON(t *testing.T) {
	rec := &fakeRecognizer{reply: "hello world"}
	ts := newTestServer(t, func() (server.Recognizer, error) { return rec, nil })

	conn := dialWS(t, ts)

	samples := make([]float32, 1600)
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeSamples(samples)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame struct {
		Delta string `json:"delta"`
		Final bool   `json:"final"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if frame.Delta != "hello world" {
		t.Errorf("delta = %q, want %q", frame.Delta, "hello world")
	}
	if frame.Final {
		t.Error("final should be false for a plain chunk")
	}
}

func TestTranscribe_EOUTextMessageFlushesAndResets(t *testing.T) {
	rec := &fakeRecognizer{reply: ""}
	ts := newTestServer(t, func() (server.Recognizer, error) { return rec, nil })

	conn := dialWS(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("eou")); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame struct {
		Delta string `json:"delta"`
		Final bool   `json:"final"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !frame.Final {
		t.Error("final should be true after an eou message")
	}

	deadline := time.Now().Add(time.Second)
	for rec.resetCount == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if rec.resetCount == 0 {
		t.Error("expected Reset to be called after eou flush")
	}
}

func TestTranscribe_RecognizerFactoryErrorClosesConnection(t *testing.T) {
	ts := newTestServer(t, func() (server.Recognizer, error) {
		return nil, errors.New("model load failed")
	})

	conn := dialWS(t, ts)

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var body map[string]string
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] == "" {
		t.Error("want non-empty error field")
	}

	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after recognizer factory error")
	}
}

func TestTranscribe_MalformedBinaryFrameReportsError(t *testing.T) {
	ts := newTestServer(t, func() (server.Recognizer, error) { return &fakeRecognizer{}, nil })

	conn := dialWS(t, ts)

	// 3 bytes is not a multiple of 4 — not a valid packed float32 block.
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var body map[string]string
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] == "" {
		t.Error("want non-empty error field for malformed frame")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"debug", false},
		{"INFO", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			_, err := server.ParseLogLevel(tc.in)
			if (err != nil) != tc.wantErr {
				t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
		})
	}
}
