// Package reqctx defines how a request's context value is built. The value
// is the typed dependency bundle every resolver of one request receives; a
// Factory builds it once from the transport metadata before resolution
// starts.
package reqctx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hanpama/reqgraph/internal/gqlerr"
	reqid "github.com/hanpama/reqgraph/internal/reqid"
)

// Request is the transport metadata of one inbound request. The transport
// owns parsing; factories only read it.
type Request struct {
	Header     http.Header
	Body       []byte
	RemoteAddr string
}

// Factory builds the context value of type C for one request. It is called
// concurrently for concurrent requests and must not keep per-request state.
// An error stops the request before any resolver runs.
type Factory[C any] interface {
	NewContext(ctx context.Context, req Request) (C, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc[C any] func(ctx context.Context, req Request) (C, error)

func (f FactoryFunc[C]) NewContext(ctx context.Context, req Request) (C, error) {
	return f(ctx, req)
}

// Meta is request metadata most context values embed.
type Meta struct {
	RequestID string
	StartedAt time.Time
}

// NewMeta reads the request ID the transport stored in ctx.
func NewMeta(ctx context.Context) Meta {
	id, _ := reqid.FromContext(ctx)
	return Meta{RequestID: id, StartedAt: time.Now()}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header. A missing header is an anonymous request and returns "" with no
// error; any other scheme or an empty token is UNAUTHENTICATED.
func BearerToken(h http.Header) (string, error) {
	v := strings.TrimSpace(h.Get("Authorization"))
	if v == "" {
		return "", nil
	}
	scheme, token, ok := strings.Cut(v, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", gqlerr.Unauthenticated("authorization header must use the Bearer scheme")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", gqlerr.Unauthenticated("bearer token is empty")
	}
	return token, nil
}
