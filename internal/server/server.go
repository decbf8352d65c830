package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	eventbus "github.com/hanpama/reqgraph/internal/eventbus"
	events "github.com/hanpama/reqgraph/internal/events"
	executor "github.com/hanpama/reqgraph/internal/executor"
	"github.com/hanpama/reqgraph/internal/gqlerr"
	introspection "github.com/hanpama/reqgraph/internal/introspection"
	language "github.com/hanpama/reqgraph/internal/language"
	reqctx "github.com/hanpama/reqgraph/internal/reqctx"
	reqid "github.com/hanpama/reqgraph/internal/reqid"
	resolver "github.com/hanpama/reqgraph/internal/resolver"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

// CodeBadRequest marks requests rejected before their document was parsed.
const CodeBadRequest = "BAD_REQUEST"

// MaskedMessage replaces the message of internal errors in production mode.
const MaskedMessage = "internal server error"

// Handler is an http.Handler that serves a GraphQL endpoint. For every
// operation it validates the document, builds the request's context value
// with the factory, and executes the operation with a runtime bound to that
// value.
type Handler[C any] struct {
	compiled *resolver.Compiled[C]
	factory  reqctx.Factory[C]
	schema   *schema.Schema
	exec     *executor.Executor
	opt      Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// Introspection enables the __schema and __type root fields.
	Introspection bool

	// Production masks internal errors before they leave the process.
	Production bool

	// MaxConcurrency bounds concurrently running sibling resolvers per
	// selection set. 0 means unbounded.
	MaxConcurrency int

	// Bus receives the request lifecycle events. nil disables them.
	Bus *eventbus.Bus
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithGraphiQL(enable bool) Option      { return func(o *Options) { o.GraphiQL = enable } }
func WithIntrospection(enable bool) Option { return func(o *Options) { o.Introspection = enable } }
func WithProduction(enable bool) Option    { return func(o *Options) { o.Production = enable } }
func WithMaxConcurrency(n int) Option      { return func(o *Options) { o.MaxConcurrency = n } }
func WithEventBus(bus *eventbus.Bus) Option {
	return func(o *Options) { o.Bus = bus }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler serving the compiled bindings. factory
// is called once per operation, before any resolver runs.
func New[C any](compiled *resolver.Compiled[C], factory reqctx.Factory[C], opts ...Option) (*Handler[C], error) {
	if compiled == nil || factory == nil {
		return nil, fmt.Errorf("server: compiled bindings and context factory are required")
	}
	op := Options{Timeout: 10 * time.Second, GraphiQL: true, Introspection: true}
	for _, f := range opts {
		f(&op)
	}

	sch := compiled.Schema()
	if op.Introspection {
		extended, err := introspection.Extend(sch)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		sch = extended
	}
	var eopts []executor.Option
	if op.MaxConcurrency > 0 {
		eopts = append(eopts, executor.WithMaxConcurrency(op.MaxConcurrency))
	}
	return &Handler[C]{
		compiled: compiled,
		factory:  factory,
		schema:   sch,
		exec:     executor.NewExecutor(sch, eopts...),
		opt:      op,
	}, nil
}

func (h *Handler[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, h.opt.Bus, events.HTTPStart{Request: r, RequestID: rid})
	defer func() {
		eventbus.Publish(ctx, h.opt.Bus, events.HTTPFinish{Request: r, RequestID: rid, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, status, rejected(badRequest("method not allowed")), h.opt.Pretty)
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	req, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, rejected(berr), h.opt.Pretty)
		return
	}

	meta := reqctx.Request{Header: r.Header, Body: req.body, RemoteAddr: r.RemoteAddr}
	if req.batch != nil {
		out := make([]any, len(req.batch))
		for i := range req.batch {
			out[i], _ = h.executeOne(ctx, meta, req.batch[i], r.Method)
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	res, st := h.executeOne(ctx, meta, req.single, r.Method)
	status = st
	writeJSON(w, status, res, h.opt.Pretty)
}

// executeOne runs one operation and returns its response body with the
// HTTP status it warrants on its own.
func (h *Handler[C]) executeOne(ctx context.Context, meta reqctx.Request, req GraphQLRequest, method string) (any, int) {
	doc, errs := language.LoadQuery(h.schema.AST, req.Query)
	if len(errs) > 0 {
		code, _ := errs[0].Extensions["code"].(string)
		list := make([]error, len(errs))
		for i := range errs {
			list[i] = errs[i]
		}
		eventbus.Publish(ctx, h.opt.Bus, events.DocumentRejected{Code: code, Errors: list})
		return rejectedResponse{Errors: errs}, http.StatusBadRequest
	}

	opType := ""
	if opDef := selectOperation(doc, req.OperationName); opDef != nil {
		opType = string(opDef.Operation)
	}
	if method == http.MethodGet && opType != "" && opType != string(language.Query) {
		return rejected(badRequest(fmt.Sprintf("%s operations are not allowed over GET", opType))), http.StatusMethodNotAllowed
	}

	// The context value is built exactly once for the operation. If that
	// fails no resolver runs.
	start := time.Now()
	value, err := h.factory.NewContext(ctx, meta)
	eventbus.Publish(ctx, h.opt.Bus, events.ContextBuilt{OperationName: req.OperationName, Err: err, Duration: time.Since(start)})
	if err != nil {
		return h.present(&executor.ExecutionResult{Errors: []executor.GraphQLError{executor.NewRequestError(err)}}), http.StatusOK
	}

	runtime := h.compiled.Runtime(value)
	if h.opt.Introspection {
		runtime = introspection.Wrap(runtime, h.schema)
	}

	start = time.Now()
	eventbus.Publish(ctx, h.opt.Bus, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	result := h.exec.ExecuteRequest(ctx, runtime, doc, req.OperationName, req.Variables, nil)
	list := make([]error, len(result.Errors))
	for i := range result.Errors {
		list[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, h.opt.Bus, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        list,
		Duration:      time.Since(start),
	})
	return h.present(result), http.StatusOK
}

func selectOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return doc.Operations.ForName(name)
}

// present applies production masking: internal errors lose their message
// and every extension but the code.
func (h *Handler[C]) present(res *executor.ExecutionResult) *executor.ExecutionResult {
	if !h.opt.Production || len(res.Errors) == 0 {
		return res
	}
	out := &executor.ExecutionResult{Data: res.Data, Errors: make([]executor.GraphQLError, len(res.Errors)), Rejected: res.Rejected}
	for i, e := range res.Errors {
		if gqlerr.CodeOf(e) == gqlerr.CodeInternal {
			e.Message = MaskedMessage
			e.Extensions = map[string]any{"code": gqlerr.CodeInternal}
		}
		out.Errors[i] = e
	}
	return out
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type parsedRequest struct {
	body   []byte
	single GraphQLRequest
	batch  []GraphQLRequest
}

func parseRequest(r *http.Request, maxBody int64) (parsedRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return parsedRequest{}, badRequest("missing 'query'")
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return parsedRequest{}, badRequest("invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return parsedRequest{single: GraphQLRequest{Query: q, Variables: vars, OperationName: op}}, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return parsedRequest{}, badRequest("unsupported Content-Type")
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return parsedRequest{}, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return parsedRequest{}, badRequest(errBodyTooLargeMessage)
	}

	// Try array (batch)
	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return parsedRequest{}, badRequest("invalid JSON")
		}
		if len(arr) == 0 {
			return parsedRequest{}, badRequest("empty batch")
		}
		return parsedRequest{body: body, batch: arr}, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return parsedRequest{}, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return parsedRequest{}, badRequest("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return parsedRequest{body: body, single: req}, nil
}

// ------------------ Response formatting ------------------

// rejectedResponse is the body of a request that never reached execution.
// It has no data entry.
type rejectedResponse struct {
	Errors language.ErrorList `json:"errors"`
}

func rejected(err *language.Error) rejectedResponse {
	return rejectedResponse{Errors: language.ErrorList{err}}
}

func badRequest(message string) *language.Error {
	return &language.Error{Message: message, Extensions: map[string]any{"code": CodeBadRequest}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
