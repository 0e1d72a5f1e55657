package dispatch

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/config"
	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/metrics"
	"github.com/cuemby/ovconverge/pkg/modules"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/storage"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Task is one module invocation
type Task struct {
	Name   string       `json:"name" yaml:"name"`
	Module string       `json:"module" yaml:"module"`
	Params types.Params `json:"params" yaml:"params"`
}

// Connector opens a controller facade for a configuration
type Connector func(ctx context.Context, cfg *config.Controller) (client.API, error)

// ConfigLoader resolves the config parameter of a task
type ConfigLoader func(path string) (*config.Controller, error)

// Dispatcher validates tasks, runs them and reports results. Facades are
// shared between tasks using the same config.
type Dispatcher struct {
	connect    Connector
	loadConfig ConfigLoader
	journal    storage.Store

	mu      sync.Mutex
	clients map[string]client.API

	logger zerolog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithConnector replaces the REST facade, mostly for tests
func WithConnector(c Connector) Option {
	return func(d *Dispatcher) { d.connect = c }
}

// WithConfigLoader replaces config.Load
func WithConfigLoader(l ConfigLoader) Option {
	return func(d *Dispatcher) { d.loadConfig = l }
}

// WithJournal records every result in store
func WithJournal(store storage.Store) Option {
	return func(d *Dispatcher) { d.journal = store }
}

// New creates a Dispatcher
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		connect:    connectREST,
		loadConfig: config.Load,
		clients:    make(map[string]client.API),
		logger:     log.WithComponent("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func connectREST(ctx context.Context, cfg *config.Controller) (client.API, error) {
	c, err := client.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run executes task and always returns a result record. Failures are
// reported as {failed, msg, exception}.
func (d *Dispatcher) Run(ctx context.Context, task Task) outcome.Result {
	timer := metrics.NewTimer()
	started := time.Now()
	logger := log.WithTask(task.Module, task.Name)

	res, err := d.run(ctx, task, logger)
	if err != nil {
		res = outcome.Fail(err)
	}
	timer.ObserveDurationVec(metrics.TaskDuration, task.Module)

	if res.Failed() {
		metrics.TaskFailures.WithLabelValues(task.Module).Inc()
		logger.Error().Err(err).Str("state", string(task.Params.State)).Msg("Task failed")
	} else {
		metrics.TasksTotal.WithLabelValues(task.Module, string(res.Msg)).Inc()
		logger.Info().
			Str("state", string(task.Params.State)).
			Bool("changed", res.Changed).
			Str("msg", string(res.Msg)).
			Dur("duration", timer.Duration()).
			Msg("Task finished")
	}

	d.record(task, res, started, timer.Duration())
	return res
}

func (d *Dispatcher) run(ctx context.Context, task Task, logger zerolog.Logger) (outcome.Result, error) {
	m, ok := modules.Get(task.Module)
	if !ok {
		return outcome.Result{}, client.NewValueError("unknown module %q", task.Module)
	}
	if err := Validate(m, task.Params); err != nil {
		return outcome.Result{}, err
	}

	api, err := d.client(ctx, task.Params.Config)
	if err != nil {
		return outcome.Result{}, err
	}
	api.SetETagValidation(task.Params.ETagValidation())

	logger.Debug().Str("state", string(task.Params.State)).Msg("Running task")
	return m.Run(ctx, api, task.Params)
}

// client returns the facade for a config path, connecting on first use
func (d *Dispatcher) client(ctx context.Context, path string) (client.API, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if api, ok := d.clients[path]; ok {
		return api, nil
	}
	cfg, err := d.loadConfig(path)
	if err != nil {
		return nil, err
	}
	api, err := d.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.clients[path] = api
	return api, nil
}

func (d *Dispatcher) record(task Task, res outcome.Result, started time.Time, elapsed time.Duration) {
	if d.journal == nil {
		return
	}
	entry := &storage.Entry{
		Module:    task.Module,
		Name:      task.Name,
		State:     string(task.Params.State),
		Changed:   res.Changed,
		Msg:       res.Message(),
		Failed:    res.Failed(),
		StartedAt: started,
		Duration:  elapsed,
	}
	if res.Failure != nil {
		entry.Error = res.Failure.Exception
	}
	if err := d.journal.Record(entry); err != nil {
		d.logger.Warn().Err(err).Str("module", task.Module).Msg("Failed to record task result")
	}
}

// Close logs out of every controller session the dispatcher opened
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for path, api := range d.clients {
		if c, ok := api.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		delete(d.clients, path)
	}
	return first
}
