package workerclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cloudbuilder/internal/adapters/httpapi"
	"go.trai.ch/cloudbuilder/internal/adapters/workerclient"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
)

var _ ports.WorkerClient = (*workerclient.Client)(nil)

func descriptor(t *testing.T) *domain.BuildDescriptor {
	t.Helper()
	desc, err := domain.ParseDescriptor("FOO_BUNDLES = foo.lv2", map[string]string{"main.c": "x"})
	require.NoError(t, err)
	return desc
}

func TestSubmit(t *testing.T) {
	var got httpapi.SubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, domain.JobsPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(httpapi.Response{OK: true, ID: "cb42"})
	}))
	defer srv.Close()

	desc := descriptor(t)
	id, err := workerclient.New(srv.URL+"/", nil).Submit(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, "cb42", id)
	assert.Equal(t, desc.Fragment, got.Fragment)
	assert.Equal(t, desc.Files, got.Files)
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "rejected",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(httpapi.Response{OK: false, Error: "Missing files"})
			},
			wantErr: domain.ErrSubmissionRejected,
		},
		{
			name: "storage failure",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(httpapi.Response{OK: false, Error: "storage unavailable"})
			},
			wantErr: domain.ErrSubmissionRejected,
		},
		{
			name: "malformed reply",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			wantErr: domain.ErrWorkerRequestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := workerclient.New(srv.URL, nil).Submit(context.Background(), descriptor(t))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	client := workerclient.New("http://127.0.0.1:1", nil)
	ctx := context.Background()

	_, err := client.Submit(ctx, descriptor(t))
	require.ErrorIs(t, err, domain.ErrWorkerRequestFailed)

	_, err = client.Relay(ctx, "cb1")
	require.ErrorIs(t, err, domain.ErrWorkerRequestFailed)

	_, err = client.FetchArtifact(ctx, "cb1")
	require.ErrorIs(t, err, domain.ErrWorkerRequestFailed)

	require.ErrorIs(t, client.Release(ctx, "cb1"), domain.ErrWorkerRequestFailed)
}

func TestRelease(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "released", status: http.StatusOK},
		{name: "already gone", status: http.StatusNotFound},
		{name: "bound to a session", status: http.StatusConflict, wantErr: domain.ErrJobBusy},
		{name: "server error", status: http.StatusInternalServerError, wantErr: domain.ErrWorkerRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, domain.JobsPath+"/cb42", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := workerclient.New(srv.URL, nil).Release(context.Background(), "cb42")
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_InvalidInput(t *testing.T) {
	_, err := workerclient.New("http://127.0.0.1:1", nil).FetchArtifact(context.Background(), "../cb1")
	require.ErrorIs(t, err, domain.ErrJobNotFound)

	err = workerclient.New("http://127.0.0.1:1", nil).Release(context.Background(), "../cb1")
	require.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = workerclient.New("not a url", nil).Submit(context.Background(), descriptor(t))
	require.ErrorIs(t, err, domain.ErrWorkerRequestFailed)
}

func TestFetchArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, domain.JobsPath+"/cb7/artifact", r.URL.Path)
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write([]byte("gz"))
	}))
	defer srv.Close()

	data, err := workerclient.New(srv.URL, nil).FetchArtifact(context.Background(), "cb7")
	require.NoError(t, err)
	assert.Equal(t, []byte("gz"), data)
}
