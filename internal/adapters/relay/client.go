package relay

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/zerr"
)

// Session is the orchestrator side of one relay session. It implements ports.RelaySession.
type Session struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a relay session on the worker at baseURL and binds it to the job id.
func Dial(ctx context.Context, baseURL, id string) (*Session, error) {
	target, err := relayURL(baseURL)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "failed to open relay session"), "url", target),
			"cause", err.Error(),
		)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(id)); err != nil {
		_ = conn.Close()
		return nil, zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "failed to send job id"), "job_id", id)
	}

	return &Session{conn: conn}, nil
}

// Next blocks until the next message. A session that ends before a sentinel
// yields an Aborted message. Cancelling ctx closes the session.
func (s *Session) Next(ctx context.Context) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Message{}, ctxErr
		}
		return domain.Abort("relay session closed before completion"), nil
	}
	return domain.Decode(string(data)), nil
}

// Close ends the session. The worker destroys the bound job in response.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func relayURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "invalid worker url"), "url", baseURL)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrWorkerRequestFailed, "unsupported worker url scheme"), "url", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + domain.RelayPath
	return u.String(), nil
}
