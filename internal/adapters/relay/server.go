// Package relay implements the sentinel-delimited websocket session between an
// orchestrator and a worker node.
package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/cloudbuilder/internal/engine/registry"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait = 5 * time.Second
	// maxIDBytes bounds the only frame a caller may send.
	maxIDBytes = 256
)

// Session results reported to metrics.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultKilled    = "killed"
	ResultRejected  = "rejected"
	ResultViolation = "violation"
)

var errPeerClosed = errors.New("peer closed the relay session")

// Builder runs the build of a registered job.
type Builder interface {
	Run(ctx context.Context, id string, onMessage func(domain.Message)) (domain.Outcome, error)
}

// Server serves the worker side of the relay protocol.
type Server struct {
	jobs     *registry.Registry
	builder  Builder
	metrics  ports.Metrics
	logger   ports.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a relay Server for the jobs of reg.
func NewServer(reg *registry.Registry, builder Builder, metrics ports.Metrics, logger ports.Logger) *Server {
	return &Server{
		jobs:    reg,
		builder: builder,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: domain.ChunkSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs one relay session to its end.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		return
	}
	defer func() { _ = conn.Close() }()

	s.metrics.ObserveRelay(s.serve(r.Context(), conn))
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn) string {
	conn.SetReadLimit(maxIDBytes)
	_, data, err := conn.ReadMessage()
	if err != nil {
		return ResultRejected
	}
	id := strings.TrimSpace(string(data))

	out := &writer{conn: conn}

	lease, err := s.jobs.Lease(id)
	if err != nil {
		if domain.IsNotFound(err) {
			out.send(domain.Log("Job not found: " + id))
		} else {
			out.send(domain.Log("Job unavailable: " + id))
		}
		out.send(domain.Abort("job rejected"))
		out.close(websocket.CloseNormalClosure, "")
		return ResultRejected
	}
	defer func() {
		if err := lease.Release(); err != nil {
			s.logger.Error(zerr.With(zerr.Wrap(err, "failed to release job"), "job_id", id))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = conn.Close() })
	defer stop()

	var outcome domain.Outcome
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	g.Go(func() error {
		if _, _, err := conn.ReadMessage(); err != nil {
			return errPeerClosed
		}
		out.close(websocket.ClosePolicyViolation, "unexpected message")
		return zerr.With(zerr.Wrap(domain.ErrProtocolViolation, "message after job id"), "job_id", id)
	})

	g.Go(func() error {
		outcome, _ = s.builder.Run(runCtx, id, func(msg domain.Message) {
			if !out.send(msg) {
				cancelRun()
			}
		})
		return nil
	})

	err = g.Wait()
	if errors.Is(err, domain.ErrProtocolViolation) {
		s.logger.Warn("relay session for " + id + " closed: protocol violation")
		return ResultViolation
	}

	switch outcome {
	case domain.OutcomeSuccess:
		return ResultCompleted
	case domain.OutcomeKilled:
		return ResultKilled
	default:
		return ResultFailed
	}
}

// writer serializes frames on one connection and remembers the first failure.
type writer struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	broken bool
}

func (w *writer) send(msg domain.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken {
		return false
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(domain.Encode(msg))); err != nil {
		w.broken = true
		return false
	}
	return true
}

func (w *writer) close(code int, reason string) {
	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
}
