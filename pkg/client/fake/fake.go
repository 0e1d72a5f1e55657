// Package fake provides an in-memory controller facade for tests.
package fake

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Call is one recorded facade call
type Call struct {
	Method string
	URI    string
	Body   interface{}
}

// Handler answers a Do request
type Handler func(body interface{}) (types.Record, error)

// API is an in-memory client.API. Resources are stored by uri.
type API struct {
	mu        sync.Mutex
	resources map[string]types.Record
	order     []string
	seq       int
	handlers  map[string]Handler
	failures  map[string][]error
	calls     []Call
	etag      bool
}

var _ client.API = (*API)(nil)

// New creates an empty fake controller
func New() *API {
	return &API{
		resources: make(map[string]types.Record),
		handlers:  make(map[string]Handler),
		failures:  make(map[string][]error),
		etag:      true,
	}
}

// Add stores a resource of kind, assigning a uri when it has none
func (f *API) Add(kind client.Kind, r types.Record) types.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store(kind, types.DeepCopy(r))
}

func (f *API) store(kind client.Kind, r types.Record) types.Record {
	uri := types.String(r, "uri")
	if uri == "" {
		f.seq++
		uri = kind.Path + "/" + strconv.Itoa(f.seq)
		r["uri"] = uri
	}
	if _, ok := f.resources[uri]; !ok {
		f.order = append(f.order, uri)
	}
	f.seq++
	r["eTag"] = strconv.Itoa(f.seq)
	f.resources[uri] = r
	return types.DeepCopy(r)
}

// Get returns a copy of the stored resource at uri
func (f *API) Get(uri string) types.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.DeepCopy(f.resources[uri])
}

// Handle registers a response for Do(method, uri)
func (f *API) Handle(method, uri string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+uri] = h
}

// FailNext queues errors returned by the next calls of method on uri. For
// Create the uri is the collection path.
func (f *API) FailNext(method, uri string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + uri
	f.failures[key] = append(f.failures[key], errs...)
}

// Calls returns every recorded call
func (f *API) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Mutations returns the recorded calls that were not reads
func (f *API) Mutations() []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

// ETagValidation reports the last value passed to SetETagValidation
func (f *API) ETagValidation() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.etag
}

func (f *API) SetETagValidation(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.etag = enabled
}

func (f *API) Collection(kind client.Kind) client.Collection {
	return &collection{api: f, kind: kind}
}

// record logs a call and pops a queued failure, under f.mu
func (f *API) record(method, uri string, body interface{}) error {
	f.calls = append(f.calls, Call{Method: method, URI: uri, Body: types.CopyValue(body)})
	key := method + " " + uri
	if errs := f.failures[key]; len(errs) > 0 {
		f.failures[key] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *API) Do(ctx context.Context, method, uri string, body interface{}) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if err := f.record(method, uri, body); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	h, ok := f.handlers[method+" "+uri]
	f.mu.Unlock()
	if ok {
		return h(body)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch method {
	case http.MethodGet:
		if r, ok := f.resources[uri]; ok {
			return types.DeepCopy(r), nil
		}
		return nil, notFound(uri)
	case http.MethodDelete:
		if _, ok := f.resources[uri]; !ok {
			return nil, notFound(uri)
		}
		f.remove(uri)
		return nil, nil
	}
	return nil, client.NewTaskError("UNSUPPORTED", method+" "+uri+" has no handler")
}

func (f *API) remove(uri string) {
	delete(f.resources, uri)
	for i, u := range f.order {
		if u == uri {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func notFound(uri string) error {
	return &client.TaskError{Code: "RESOURCE_NOT_FOUND", Message: "resource not found: " + uri, Status: http.StatusNotFound}
}

type collection struct {
	api  *API
	kind client.Kind
}

func (c *collection) Kind() client.Kind {
	return c.kind
}

func (c *collection) members() []types.Record {
	var out []types.Record
	for _, uri := range c.api.order {
		if strings.HasPrefix(uri, c.kind.Path+"/") {
			if k, ok := client.KindForURI(uri); ok && k.Path == c.kind.Path {
				out = append(out, types.DeepCopy(c.api.resources[uri]))
			}
		}
	}
	return out
}

func (c *collection) GetByName(ctx context.Context, name string) (types.Record, error) {
	members, err := c.GetBy(ctx, "name", name)
	if err != nil || len(members) == 0 {
		return nil, err
	}
	return members[0], nil
}

func (c *collection) GetByURI(ctx context.Context, uri string) (types.Record, error) {
	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	if err := c.api.record(http.MethodGet, uri, nil); err != nil {
		return nil, err
	}
	r, ok := c.api.resources[uri]
	if !ok {
		return nil, nil
	}
	return types.DeepCopy(r), nil
}

func (c *collection) GetAll(ctx context.Context) ([]types.Record, error) {
	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	if err := c.api.record(http.MethodGet, c.kind.Path, nil); err != nil {
		return nil, err
	}
	return c.members(), nil
}

func (c *collection) GetBy(ctx context.Context, field, value string) ([]types.Record, error) {
	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	if err := c.api.record(http.MethodGet, c.kind.Path+"?"+field+"="+value, nil); err != nil {
		return nil, err
	}
	return client.FilterMembers(c.members(), field, value), nil
}

func (c *collection) Create(ctx context.Context, body types.Record) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	if err := c.api.record(http.MethodPost, c.kind.Path, body); err != nil {
		return nil, err
	}
	r := types.DeepCopy(body)
	delete(r, "uri")
	return c.api.store(c.kind, r), nil
}

func (c *collection) Update(ctx context.Context, body types.Record) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uri := types.String(body, "uri")
	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	if err := c.api.record(http.MethodPut, uri, body); err != nil {
		return nil, err
	}
	if _, ok := c.api.resources[uri]; !ok {
		return nil, notFound(uri)
	}
	return c.api.store(c.kind, types.DeepCopy(body)), nil
}

func (c *collection) Delete(ctx context.Context, resource types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uri := types.String(resource, "uri")
	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	if err := c.api.record(http.MethodDelete, uri, nil); err != nil {
		return err
	}
	if _, ok := c.api.resources[uri]; !ok {
		return notFound(uri)
	}
	c.api.remove(uri)
	return nil
}

// Patch supports replace and add on slash-separated paths
func (c *collection) Patch(ctx context.Context, uri, op, path string, value interface{}) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	body := types.List{types.Record{"op": op, "path": path, "value": value}}
	if err := c.api.record(http.MethodPatch, uri, body); err != nil {
		return nil, err
	}
	r, ok := c.api.resources[uri]
	if !ok {
		return nil, notFound(uri)
	}
	r = types.DeepCopy(r)
	segments := strings.Split(strings.Trim(path, "/"), "/")
	cur := r
	for _, seg := range segments[:len(segments)-1] {
		next, ok := types.Child(cur, seg)
		if !ok {
			next = types.Record{}
			cur[seg] = next
		}
		cur = next
	}
	last := segments[len(segments)-1]
	switch op {
	case "remove":
		delete(cur, last)
	default:
		cur[last] = types.CopyValue(value)
	}
	return c.api.store(c.kind, r), nil
}
