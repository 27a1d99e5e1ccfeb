// Package server exposes the streaming recognizer over a websocket: one
// connection to /ws/transcribe gets its own Recognizer, binary frames in
// are raw little-endian float32 PCM sample blocks, and JSON frames out
// report the text delta produced by each chunk.
package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Recognizer is the subset of *asr.Recognizer the server depends on. Kept
// as a local interface so tests can drive the handler with a fake, and so
// this package does not need to import the onnx runtime transitively.
type Recognizer interface {
	TranscribeChunk(ctx context.Context, samples []float32) (string, error)
	FlushSampleCount() int
	Reset()
	Close()
}

// RecognizerFactory builds one Recognizer per accepted connection.
type RecognizerFactory func() (Recognizer, error)

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxFrameBytes int
	workers       int
	idleTimeout   time.Duration
	logger        *slog.Logger
}

func defaultOptions() options {
	return options{
		maxFrameBytes: 1 << 20,
		workers:       2,
		idleTimeout:   60 * time.Second,
		logger:        slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxFrameBytes sets the maximum allowed size of one inbound binary
// websocket frame.
func WithMaxFrameBytes(n int) Option {
	return func(o *options) { o.maxFrameBytes = n }
}

// WithWorkers sets the maximum number of concurrent streaming connections.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithIdleTimeout sets how long the server waits for a frame before
// closing an idle connection.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}

// WithLogger sets the slog.Logger used for connection logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve websocket connections.
type handler struct {
	factory  RecognizerFactory
	upgrader websocket.Upgrader
	opts     options
	sem      chan struct{} // semaphore for worker pool
	log      *slog.Logger
}

// NewHandler returns an http.Handler that serves /health and /ws/transcribe.
func NewHandler(factory RecognizerFactory, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		factory: factory,
		opts:    opts,
		log:     opts.logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/ws/transcribe", h.handleTranscribe)

	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

// transcribeFrame is one outbound JSON websocket message.
type transcribeFrame struct {
	Delta string `json:"delta"`
	Final bool   `json:"final"`
}

func (h *handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !h.acquireWorker(r.Context(), w) {
		return
	}
	if h.sem != nil {
		defer func() { <-h.sem }()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.ErrorContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(int64(h.opts.maxFrameBytes))

	rec, err := h.factory()
	if err != nil {
		h.log.ErrorContext(r.Context(), "recognizer construction failed", slog.String("error", err.Error()))
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})

		return
	}
	defer rec.Close()

	start := time.Now()

	var totalSamples int
readLoop:
	for {
		if h.opts.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.opts.idleTimeout))
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WarnContext(r.Context(), "websocket read error", slog.String("error", err.Error()))
			}

			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			samples, err := decodeSamples(data)
			if err != nil {
				_ = conn.WriteJSON(map[string]string{"error": err.Error()})
				continue
			}

			totalSamples += len(samples)

			delta, err := rec.TranscribeChunk(r.Context(), samples)
			if err != nil {
				h.log.ErrorContext(r.Context(), "transcription failed", slog.String("error", err.Error()))
				_ = conn.WriteJSON(map[string]string{"error": err.Error()})

				break readLoop
			}

			if delta != "" {
				_ = conn.WriteJSON(transcribeFrame{Delta: delta})
			}
		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) == "eou" {
				delta, err := flushUtterance(r.Context(), rec)
				if err != nil {
					h.log.ErrorContext(r.Context(), "flush failed", slog.String("error", err.Error()))
					_ = conn.WriteJSON(map[string]string{"error": err.Error()})

					continue
				}

				_ = conn.WriteJSON(transcribeFrame{Delta: delta, Final: true})
				rec.Reset()
			}
		case websocket.CloseMessage:
			break readLoop
		}
	}

	h.log.InfoContext(r.Context(), "transcription session complete",
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		slog.Int("total_samples", totalSamples),
	)
}

// flushUtterance drains encoder lookahead and any pending predictor
// emissions by pumping three zero-filled chunks, matching the flush
// protocol used by the offline transcription path.
func flushUtterance(ctx context.Context, rec Recognizer) (string, error) {
	var sb strings.Builder

	flush := make([]float32, rec.FlushSampleCount())
	for i := 0; i < 3; i++ {
		delta, err := rec.TranscribeChunk(ctx, flush)
		if err != nil {
			return "", err
		}

		sb.WriteString(delta)
	}

	return sb.String(), nil
}

// decodeSamples interprets a binary frame as packed little-endian float32
// PCM samples.
func decodeSamples(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("server: binary frame length %d is not a multiple of 4", len(data))
	}

	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}

	return samples, nil
}

// acquireWorker tries to acquire a worker slot from the semaphore.
// Returns true on success. On failure (context cancelled) it writes an HTTP
// error and returns false. When sem is nil (no throttling) it returns true
// immediately.
func (h *handler) acquireWorker(ctx context.Context, w http.ResponseWriter) bool {
	if h.sem == nil {
		return true
	}

	select {
	case h.sem <- struct{}{}:
		return true
	default:
		h.log.Info("connection queued for worker slot")

		select {
		case h.sem <- struct{}{}:
			return true
		case <-ctx.Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return false
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	addr            string
	factory         RecognizerFactory
	workers         int
	maxFrameBytes   int
	shutdownTimeout time.Duration
}

// New builds a Server that serves connections built by factory.
func New(addr string, factory RecognizerFactory, workers, maxFrameBytes int) *Server {
	return &Server{
		addr:            addr,
		factory:         factory,
		workers:         workers,
		maxFrameBytes:   maxFrameBytes,
		shutdownTimeout: 30 * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	workers := s.workers
	if workers <= 0 {
		workers = 2
	}

	maxFrame := s.maxFrameBytes
	if maxFrame <= 0 {
		maxFrame = 1 << 20
	}

	h := NewHandler(s.factory, WithWorkers(workers), WithMaxFrameBytes(maxFrame))

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP performs a liveness check against a running server's /health endpoint.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}

	return nil
}
