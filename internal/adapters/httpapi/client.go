package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/zerr"
)

// BuildStream is the caller side of one build session.
type BuildStream struct {
	conn *websocket.Conn
}

// DialBuild opens a build session on the orchestrator at baseURL and sends req.
func DialBuild(ctx context.Context, baseURL string, req BuildRequest) (*BuildStream, error) {
	target, err := Endpoint(baseURL, domain.BuildPath, true)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open build session"), "url", target)
	}
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, zerr.Wrap(err, "failed to send build request")
	}
	return &BuildStream{conn: conn}, nil
}

// Next returns the next frame. io.EOF reports a regular end of the session.
func (s *BuildStream) Next(ctx context.Context) (Frame, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	var f Frame
	if err := s.conn.ReadJSON(&f); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return f, ctxErr
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return f, io.EOF
		}
		return f, zerr.Wrap(err, "build session interrupted")
	}
	return f, nil
}

// Close ends the session. An unfinished chain is cancelled by the orchestrator.
func (s *BuildStream) Close() error {
	return s.conn.Close()
}

// FetchChainArtifact downloads a stored chain artifact from the orchestrator.
func FetchChainArtifact(ctx context.Context, client *http.Client, baseURL, session, target string) ([]byte, error) {
	if !domain.IsPlainName(session) || !domain.IsPlainName(target) {
		return nil, zerr.With(zerr.Wrap(domain.ErrArtifactNotFound, "invalid artifact reference"), "session", session)
	}
	endpoint, err := Endpoint(baseURL, domain.ChainsPath+"/"+session+"/"+target, false)
	if err != nil {
		return nil, err
	}
	return Download(ctx, client, endpoint)
}

// Download GETs endpoint and returns the body of a 200 reply. A 404 maps to the
// not-found sentinel named in the JSON reply.
func Download(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "invalid request"), "url", endpoint)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "request failed"), "url", endpoint),
			"cause", err.Error(),
		)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, zerr.With(notFoundFrom(resp.Body), "url", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "unexpected status"), "url", endpoint),
			"status", resp.StatusCode,
		)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "failed to read body"), "url", endpoint)
	}
	return data, nil
}

func notFoundFrom(body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	text := string(raw)
	for _, sentinel := range []error{domain.ErrSessionNotFound, domain.ErrArtifactNotFound, domain.ErrBundleNotFound} {
		if strings.Contains(text, sentinel.Error()) {
			return zerr.Wrap(sentinel, "not found")
		}
	}
	return zerr.Wrap(domain.ErrJobNotFound, "not found")
}

// Endpoint joins baseURL and path. With ws set the scheme is switched to ws or wss.
func Endpoint(baseURL, path string, ws bool) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "invalid url"), "url", baseURL)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "unsupported url scheme"), "url", baseURL)
	}
	if ws {
		u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}
