package tasks

import (
	"context"

	"github.com/hanpama/reqgraph/internal/gqlerr"
	reqctx "github.com/hanpama/reqgraph/internal/reqctx"
)

// Context is the value every resolver of one request receives. Viewer is
// held by value so a resolver changing its copy cannot change the principal
// seen by the others; Authenticated is false for anonymous requests.
type Context struct {
	reqctx.Meta
	Viewer        User
	Authenticated bool
	Store         *Store
}

// DefaultTokens maps bearer tokens to user ids.
var DefaultTokens = map[string]string{
	"ada-token":   "u1",
	"grace-token": "u2",
	"linus-token": "u3",
}

// NewFactory builds request contexts around store. tokens maps bearer tokens
// to user ids and is only read.
func NewFactory(store *Store, tokens map[string]string) reqctx.Factory[Context] {
	return reqctx.FactoryFunc[Context](func(ctx context.Context, req reqctx.Request) (Context, error) {
		c := Context{Meta: reqctx.NewMeta(ctx), Store: store}
		token, err := reqctx.BearerToken(req.Header)
		if err != nil {
			return Context{}, err
		}
		if token == "" {
			return c, nil
		}
		id, ok := tokens[token]
		if !ok {
			return Context{}, gqlerr.Unauthenticated("invalid or expired token")
		}
		u, err := store.User(ctx, id)
		if err != nil {
			return Context{}, gqlerr.Internal(err)
		}
		if u == nil {
			return Context{}, gqlerr.Unauthenticated("token owner no longer exists")
		}
		c.Viewer, c.Authenticated = *u, true
		return c, nil
	})
}

// requireViewer returns a copy of the viewer.
func (c Context) requireViewer() (*User, error) {
	if !c.Authenticated {
		return nil, gqlerr.Unauthenticated("authentication required")
	}
	v := c.Viewer
	return &v, nil
}

// canManage reports whether the viewer may change t.
func (c Context) canManage(t *Task) bool {
	return c.Authenticated && (c.Viewer.Role == RoleAdmin || c.Viewer.ID == t.OwnerID)
}
