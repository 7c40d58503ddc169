// Package workerclient is the orchestrator's client of one worker node.
package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.trai.ch/cloudbuilder/internal/adapters/httpapi"
	"go.trai.ch/cloudbuilder/internal/adapters/relay"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	submitTimeout  = 30 * time.Second
	releaseTimeout = 10 * time.Second
)

// Client implements ports.WorkerClient over HTTP and the relay websocket.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the worker at baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Submit posts the descriptor and returns the id of the created job.
func (c *Client) Submit(ctx context.Context, desc *domain.BuildDescriptor) (string, error) {
	endpoint, err := httpapi.Endpoint(c.baseURL, domain.JobsPath, false)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(httpapi.SubmitRequest{Fragment: desc.Fragment, Files: desc.Files})
	if err != nil {
		return "", zerr.Wrap(err, "failed to encode submission")
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "invalid request"), "url", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", zerr.With(
			zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "submission failed"), "url", endpoint),
			"cause", err.Error(),
		)
	}
	defer func() { _ = resp.Body.Close() }()

	var out httpapi.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", zerr.With(
			zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "malformed submission reply"), "url", endpoint),
			"status", resp.StatusCode,
		)
	}
	if !out.OK || out.ID == "" {
		return "", zerr.With(
			zerr.With(zerr.Wrap(domain.ErrSubmissionRejected, out.Error), "url", endpoint),
			"status", resp.StatusCode,
		)
	}
	return out.ID, nil
}

// Relay opens the relay session of job id.
func (c *Client) Relay(ctx context.Context, id string) (ports.RelaySession, error) {
	sess, err := relay.Dial(ctx, c.baseURL, id)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// FetchArtifact downloads the gzip archive of job id.
func (c *Client) FetchArtifact(ctx context.Context, id string) ([]byte, error) {
	if !domain.IsPlainName(id) {
		return nil, zerr.With(zerr.Wrap(domain.ErrJobNotFound, "invalid job id"), "job_id", id)
	}
	endpoint, err := httpapi.Endpoint(c.baseURL, domain.JobsPath+"/"+id+"/"+domain.ArtifactRoute, false)
	if err != nil {
		return nil, err
	}
	return httpapi.Download(ctx, c.http, endpoint)
}

// Release destroys job id on the worker. A job that is already gone is not an error.
func (c *Client) Release(ctx context.Context, id string) error {
	if !domain.IsPlainName(id) {
		return zerr.With(zerr.Wrap(domain.ErrJobNotFound, "invalid job id"), "job_id", id)
	}
	endpoint, err := httpapi.Endpoint(c.baseURL, domain.JobsPath+"/"+id, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, releaseTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "invalid request"), "url", endpoint)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return zerr.With(
			zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "release failed"), "url", endpoint),
			"cause", err.Error(),
		)
	}
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		return nil
	case http.StatusConflict:
		return zerr.With(zerr.Wrap(domain.ErrJobBusy, "job bound to a session"), "job_id", id)
	default:
		return zerr.With(
			zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "unexpected status"), "url", endpoint),
			"status", resp.StatusCode,
		)
	}
}
