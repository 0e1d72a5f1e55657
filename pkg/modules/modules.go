package modules

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/reconciler"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Handler runs one state of a module
type Handler func(ctx context.Context, t *Task) (outcome.Result, error)

// Verb is a domain state beyond present and absent
type Verb struct {
	State types.State
	Run   Handler
}

// Module is one single-purpose automation task
type Module struct {
	Name    string
	FactKey string
	Kind    client.Kind
	Rules   []resolve.Rule

	// Lifecycle enables the present and absent states
	Lifecycle bool
	// Customize sets reconciler hooks for the task at hand
	Customize func(spec *reconciler.Spec, params types.Params)
	Verbs     []Verb
}

// States lists the states the module accepts
func (m *Module) States() []types.State {
	var states []types.State
	if m.Lifecycle {
		states = append(states, types.StatePresent, types.StateAbsent)
	}
	for _, v := range m.Verbs {
		states = append(states, v.State)
	}
	return states
}

// Supports reports whether state is one of the module states
func (m *Module) Supports(state types.State) bool {
	for _, s := range m.States() {
		if s == state {
			return true
		}
	}
	return false
}

// Spec builds the reconciler spec for params
func (m *Module) Spec(params types.Params) *reconciler.Spec {
	spec := &reconciler.Spec{Kind: m.Kind, FactKey: m.FactKey, Rules: m.Rules}
	if m.Customize != nil {
		m.Customize(spec, params)
	}
	return spec
}

// Run converges params against the controller behind api
func (m *Module) Run(ctx context.Context, api client.API, params types.Params) (outcome.Result, error) {
	t := &Task{
		Module:     m,
		API:        api,
		Params:     params,
		Spec:       m.Spec(params),
		Reconciler: reconciler.New(api).WithLogger(log.WithModule(m.Name)),
	}

	if m.Lifecycle {
		switch params.State {
		case types.StatePresent:
			return t.Reconciler.Present(ctx, t.Spec, params.Data)
		case types.StateAbsent:
			return t.Reconciler.Absent(ctx, t.Spec, params.Data)
		}
	}
	for _, v := range m.Verbs {
		if v.State == params.State {
			return v.Run(ctx, t)
		}
	}
	return outcome.Result{}, client.NewValueError("%s does not support state %q", m.Name, params.State)
}

// Task is the per-invocation context handed to verbs
type Task struct {
	Module     *Module
	API        client.API
	Params     types.Params
	Spec       *reconciler.Spec
	Reconciler *reconciler.Reconciler
}

// Data returns the desired record, never nil
func (t *Task) Data() types.Record {
	if t.Params.Data == nil {
		return types.Record{}
	}
	return t.Params.Data
}

// Load returns the existing resource named by the task data
func (t *Task) Load(ctx context.Context) (types.Record, error) {
	return t.Reconciler.Load(ctx, t.Spec, t.Params.Data)
}

// Section returns the data sub-record key, failing when it is missing
func (t *Task) Section(key string) (types.Record, error) {
	sub, ok := types.Child(t.Params.Data, key)
	if !ok || len(sub) == 0 {
		return nil, client.NewValueError("%s requires data.%s", t.Params.State, key)
	}
	return types.DeepCopy(sub), nil
}

// Flag reads a boolean from params, def when unset
func (t *Task) Flag(key string, def bool) bool {
	v, ok := t.Params.Params[key].(bool)
	if !ok {
		return def
	}
	return v
}

func (t *Task) changed(msg types.Message, resource types.Record) outcome.Result {
	return outcome.Changed(msg, t.Spec.FactKey, resource)
}

func (t *Task) unchanged(msg types.Message, resource types.Record) outcome.Result {
	return outcome.Unchanged(msg, t.Spec.FactKey, resource)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]*Module)
)

// Register adds modules to the registry. Names must be unique.
func Register(mods ...*Module) {
	mu.Lock()
	defer mu.Unlock()
	for _, m := range mods {
		if _, dup := registry[m.Name]; dup {
			panic(errors.Errorf("module %s registered twice", m.Name))
		}
		registry[m.Name] = m
	}
}

// Get returns a registered module
func Get(name string) (*Module, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := registry[name]
	return m, ok
}

// All returns every registered module sorted by name
func All() []*Module {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]*Module, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// resultOr returns the controller response when it carries a resource
func resultOr(resp, fallback types.Record) types.Record {
	if len(resp) > 0 {
		return resp
	}
	return fallback
}

func stringList(v interface{}) []string {
	l, ok := types.AsList(v)
	if !ok {
		if s, isStr := v.(string); isStr && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(l))
	for _, e := range l {
		if s, ok := e.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
