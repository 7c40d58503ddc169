package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/zerr"
)

// Jobs is the part of the job registry the worker API needs.
type Jobs interface {
	Create(ctx context.Context, desc *domain.BuildDescriptor) (*domain.Job, error)
	Get(id string) (*domain.Job, error)
	Discard(id string) error
}

// Worker serves the HTTP surface of a worker node.
type Worker struct {
	router   chi.Router
	jobs     Jobs
	packager ports.Packager
	logger   ports.Logger
}

// NewWorker mounts job submission and release, artifact download, the relay
// endpoint and the metrics handler on one router.
func NewWorker(jobs Jobs, packager ports.Packager, relay, metrics http.Handler, logger ports.Logger) *Worker {
	w := &Worker{
		router:   newRouter(metrics),
		jobs:     jobs,
		packager: packager,
		logger:   logger,
	}

	w.router.Post(domain.JobsPath, w.handleSubmit)
	w.router.Delete(domain.JobsPath+"/{id}", w.handleDiscard)
	w.router.Get(domain.JobsPath+"/{id}/"+domain.ArtifactRoute, w.handleArtifact)
	w.router.Handle(domain.RelayPath, relay)
	return w
}

func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.router.ServeHTTP(rw, r)
}

func (w *Worker) handleSubmit(rw http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(rw, http.StatusBadRequest, Response{OK: false, Error: "malformed request body"})
		return
	}

	desc, err := domain.ParseDescriptor(req.Fragment, req.Files)
	if err != nil {
		writeError(rw, err)
		return
	}

	job, err := w.jobs.Create(r.Context(), desc)
	if err != nil {
		if !domain.IsValidation(err) {
			w.logger.Error(zerr.Wrap(err, "failed to create job"))
		}
		writeError(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, Response{OK: true, ID: job.ID})
}

// handleDiscard drops a job whose relay session was never opened.
func (w *Worker) handleDiscard(rw http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := w.jobs.Discard(id); err != nil {
		if !domain.IsNotFound(err) && !errors.Is(err, domain.ErrJobBusy) {
			w.logger.Error(zerr.With(zerr.Wrap(err, "failed to discard job"), "job_id", id))
		}
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, Response{OK: true, ID: id})
}

// handleArtifact streams the gzip archive of the job's bundle. Headers are only
// committed with the first chunk, so a missing bundle still yields a JSON error.
func (w *Worker) handleArtifact(rw http.ResponseWriter, r *http.Request) {
	job, err := w.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(rw, err)
		return
	}

	flusher, _ := rw.(http.Flusher)
	started := false
	err = w.packager.Stream(r.Context(), job, func(chunk []byte) error {
		if !started {
			started = true
			rw.Header().Set("Content-Type", "application/gzip")
			rw.Header().Set("Content-Disposition", `attachment; filename="`+job.Bundle+`.tar.gz"`)
			rw.WriteHeader(http.StatusOK)
		}
		if _, err := rw.Write(chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err == nil {
		return
	}
	if !started {
		writeError(rw, err)
		return
	}
	w.logger.Error(zerr.With(zerr.Wrap(err, "artifact stream interrupted"), "job_id", job.ID))
}
