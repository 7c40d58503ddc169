package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/cloudbuilder/internal/engine/chain"
	"go.trai.ch/zerr"
)

// Chains is the part of the chain orchestrator the caller API needs.
type Chains interface {
	Run(ctx context.Context, req chain.Request, sink ports.ChainSink) (*chain.Result, error)
	Fetch(session, target string) ([]byte, error)
	Targets() []string
}

// Orchestrator serves the caller-facing HTTP surface of the orchestrator node.
type Orchestrator struct {
	router   chi.Router
	chains   Chains
	logger   ports.Logger
	upgrader websocket.Upgrader
}

// NewOrchestrator mounts the build session, chain downloads and the listings on one router.
func NewOrchestrator(chains Chains, metrics http.Handler, logger ports.Logger) *Orchestrator {
	o := &Orchestrator{
		router:   newRouter(metrics),
		chains:   chains,
		logger:   logger,
		upgrader: newUpgrader(),
	}

	o.router.Get(domain.BuildPath, o.handleBuild)
	o.router.Get(domain.ChainsPath+"/{session}/{target}", o.handleChainArtifact)
	o.router.Get(domain.TargetsPath, o.handleTargets)
	o.router.Get(domain.CategoryPath, handleCategories)
	return o
}

func (o *Orchestrator) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	o.router.ServeHTTP(rw, r)
}

func (o *Orchestrator) handleTargets(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, Response{OK: true, Data: o.chains.Targets()})
}

func handleCategories(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, Response{OK: true, Data: domain.Categories})
}

func (o *Orchestrator) handleChainArtifact(rw http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	data, err := o.chains.Fetch(chi.URLParam(r, "session"), target)
	if err != nil {
		writeError(rw, err)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(data))
	rw.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		rw.WriteHeader(http.StatusNotModified)
		return
	}

	rw.Header().Set("Content-Type", "application/gzip")
	rw.Header().Set("Content-Disposition", `attachment; filename="`+target+domain.ArchiveExt+`"`)
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write(data)
}

// handleBuild runs one chain for the caller. Closing the caller socket cancels the
// chain, which tears down the current relay session and with it the remote job.
func (o *Orchestrator) handleBuild(rw http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	out := &frames{conn: conn}
	defer out.close()

	conn.SetReadLimit(maxBodyBytes)
	var req BuildRequest
	if err := conn.ReadJSON(&req); err != nil {
		out.send(Frame{Type: FrameStatus, Status: string(domain.StatusError), Error: "malformed build request"})
		return
	}

	desc, err := domain.ParseDescriptor(req.Fragment, req.Files)
	if err != nil {
		out.send(Frame{Type: FrameStatus, Status: string(domain.StatusError), Error: domain.Reason(err, "invalid descriptor")})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	res, err := o.chains.Run(ctx, chain.Request{
		Descriptor: desc,
		Targets:    req.Targets,
		Persistent: req.Persistent,
		Meta:       domain.ChainMeta{Name: req.Name, Brand: req.Brand, Category: req.Category},
	}, out)
	if err != nil {
		if ctx.Err() != nil {
			o.logger.Warn("build session closed by caller")
			return
		}
		out.send(errorFrame(err))
		if !domain.IsValidation(err) {
			o.logger.Error(zerr.Wrap(err, "chain failed"))
		}
		return
	}

	if res.Session != "" {
		out.send(Frame{Type: FrameSession, Session: res.Session})
	}
}

func errorFrame(err error) Frame {
	f := Frame{Type: FrameStatus, Status: string(domain.StatusError)}
	var targetErr *domain.TargetError
	if errors.As(err, &targetErr) {
		f.Target = targetErr.Target
		f.Error = targetErr.Err.Error()
		return f
	}
	f.Error = domain.Reason(err, "build failed")
	return f
}

// frames implements ports.ChainSink on a build session. Target errors are sent
// once by the handler together with their reason.
type frames struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	broken bool
}

func (f *frames) Log(target, line string) {
	f.send(Frame{Type: FrameLog, Target: target, Text: line})
}

func (f *frames) Status(target string, status domain.ChainStatus) {
	if status == domain.StatusError {
		return
	}
	f.send(Frame{Type: FrameStatus, Status: string(status), Target: target})
}

func (f *frames) Artifact(target string, data []byte) {
	f.send(Frame{Type: FrameArtifact, Target: target, Data: data})
}

func (f *frames) send(frame Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := f.conn.WriteJSON(frame); err != nil {
		f.broken = true
	}
}

func (f *frames) close() {
	_ = f.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}
