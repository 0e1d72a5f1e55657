package reconciler

import (
	"context"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/compare"
	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/merge"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Keys every resource carries
const (
	KeyName    = "name"
	KeyNewName = "newName"
	KeyURI     = "uri"
)

// FindFunc loads the observed resource, nil when it does not exist
type FindFunc func(ctx context.Context, api client.API, desired types.Record) (types.Record, error)

// WriteFunc creates or updates a resource and returns it as stored
type WriteFunc func(ctx context.Context, api client.API, body, observed types.Record) (types.Record, error)

// MergeProvider builds the merge function for one task
type MergeProvider func(ctx context.Context, api client.API, desired types.Record) (merge.Func, error)

// Spec describes how one resource kind converges. Every hook is optional.
type Spec struct {
	Kind    client.Kind
	FactKey string
	Rules   []resolve.Rule

	// ResolveBeforeLoad resolves names before Find, for kinds whose lookup
	// depends on a resolved reference
	ResolveBeforeLoad bool

	Find         FindFunc
	Create       WriteFunc
	Update       WriteFunc
	BeforeDelete func(ctx context.Context, api client.API, observed types.Record) error

	// Merge defaults to merge.Merge, MergeWith wins over Merge when set
	Merge     merge.Func
	MergeWith MergeProvider
	// Equal defaults to compare.Equal
	Equal func(a, b types.Record) bool
}

// Reconciler converges one task at a time against the controller
type Reconciler struct {
	api      client.API
	resolver *resolve.Resolver
	logger   zerolog.Logger
}

// New creates a Reconciler for a single task
func New(api client.API) *Reconciler {
	return &Reconciler{
		api:      api,
		resolver: resolve.New(api),
		logger:   log.WithComponent("reconciler"),
	}
}

// WithLogger replaces the reconciler logger, typically with a task logger
func (r *Reconciler) WithLogger(logger zerolog.Logger) *Reconciler {
	r.logger = logger
	return r
}

// API returns the facade the reconciler drives
func (r *Reconciler) API() client.API {
	return r.api
}

// Resolver returns the per-task name resolver
func (r *Reconciler) Resolver() *resolve.Resolver {
	return r.resolver
}

// Present creates the resource when missing and updates it when it drifts
func (r *Reconciler) Present(ctx context.Context, spec *Spec, data types.Record) (outcome.Result, error) {
	desired := types.DeepCopy(data)
	if desired == nil {
		desired = types.Record{}
	}
	newName := types.String(desired, KeyNewName)
	delete(desired, KeyNewName)

	var err error
	resolved := false
	if spec.ResolveBeforeLoad {
		r.step(spec, "RESOLVE_NAMES")
		if desired, err = r.resolver.Resolve(ctx, desired, spec.Rules); err != nil {
			return outcome.Result{}, err
		}
		resolved = true
	}

	r.step(spec, "LOAD")
	observed, err := r.find(ctx, spec, desired, newName)
	if err != nil {
		return outcome.Result{}, err
	}

	if !resolved {
		r.step(spec, "RESOLVE_NAMES")
		if desired, err = r.resolver.Resolve(ctx, desired, spec.Rules); err != nil {
			return outcome.Result{}, err
		}
	}
	if newName != "" {
		desired[KeyName] = newName
	}

	if err := checkpoint(ctx); err != nil {
		return outcome.Result{}, err
	}

	if observed == nil {
		r.step(spec, "CREATE")
		created, err := r.create(ctx, spec, desired)
		if err != nil {
			return outcome.Result{}, err
		}
		return outcome.Changed(types.MsgCreated, spec.FactKey, created), nil
	}

	r.step(spec, "MERGE")
	mergeFn, err := r.mergeFunc(ctx, spec, desired)
	if err != nil {
		return outcome.Result{}, err
	}
	merged, err := mergeFn(observed, desired)
	if err != nil {
		return outcome.Result{}, errors.Wrapf(err, "failed to merge %s", spec.Kind.Label)
	}

	r.step(spec, "COMPARE")
	if r.equal(spec, observed, merged) {
		return outcome.Unchanged(types.MsgAlreadyPresent, spec.FactKey, observed), nil
	}
	logger := log.WithResource(r.logger, types.String(observed, KeyURI))
	logger.Debug().
		Str("kind", spec.Kind.Name).
		Str("diff", cmp.Diff(observed, merged)).
		Msg("Resource drifted")

	if err := checkpoint(ctx); err != nil {
		return outcome.Result{}, err
	}

	r.step(spec, "UPDATE")
	updated, err := r.update(ctx, spec, merged, observed)
	if err != nil {
		return outcome.Result{}, err
	}
	return outcome.Changed(types.MsgUpdated, spec.FactKey, updated), nil
}

// Absent deletes the resource when it exists
func (r *Reconciler) Absent(ctx context.Context, spec *Spec, data types.Record) (outcome.Result, error) {
	desired := types.DeepCopy(data)
	if spec.ResolveBeforeLoad {
		var err error
		if desired, err = r.resolver.Resolve(ctx, desired, spec.Rules); err != nil {
			return outcome.Result{}, err
		}
	}

	r.step(spec, "LOAD")
	observed, err := r.find(ctx, spec, desired, "")
	if err != nil {
		return outcome.Result{}, err
	}
	if observed == nil {
		return outcome.Unchanged(types.MsgAlreadyAbsent, spec.FactKey, nil), nil
	}

	if spec.BeforeDelete != nil {
		r.step(spec, "BEFORE_DELETE")
		if err := spec.BeforeDelete(ctx, r.api, observed); err != nil {
			return outcome.Result{}, err
		}
	}
	if err := checkpoint(ctx); err != nil {
		return outcome.Result{}, err
	}

	r.step(spec, "DELETE")
	if err := r.api.Collection(spec.Kind).Delete(ctx, observed); err != nil {
		return outcome.Result{}, err
	}
	return outcome.Changed(types.MsgDeleted, spec.FactKey, nil), nil
}

// Load returns the existing resource or fails with ResourceNotFound. Domain
// verbs that act on an existing resource start here.
func (r *Reconciler) Load(ctx context.Context, spec *Spec, data types.Record) (types.Record, error) {
	desired := types.DeepCopy(data)
	if spec.ResolveBeforeLoad {
		var err error
		if desired, err = r.resolver.Resolve(ctx, desired, spec.Rules); err != nil {
			return nil, err
		}
	}
	observed, err := r.find(ctx, spec, desired, "")
	if err != nil {
		return nil, err
	}
	if observed == nil {
		return nil, client.NewResourceNotFound("%s not found: %s", spec.Kind.Label, identity(desired))
	}
	return observed, nil
}

func (r *Reconciler) find(ctx context.Context, spec *Spec, desired types.Record, newName string) (types.Record, error) {
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	if spec.Find != nil {
		return spec.Find(ctx, r.api, desired)
	}

	coll := r.api.Collection(spec.Kind)
	if uri := types.String(desired, KeyURI); uri != "" {
		return coll.GetByURI(ctx, uri)
	}
	name := types.String(desired, KeyName)
	if name == "" {
		return nil, client.NewValueError("%s name is required", spec.Kind.Label)
	}
	observed, err := coll.GetByName(ctx, name)
	if err != nil || observed != nil || newName == "" {
		return observed, err
	}
	return coll.GetByName(ctx, newName)
}

func (r *Reconciler) create(ctx context.Context, spec *Spec, body types.Record) (types.Record, error) {
	if spec.Create != nil {
		return spec.Create(ctx, r.api, body, nil)
	}
	return r.api.Collection(spec.Kind).Create(ctx, body)
}

func (r *Reconciler) update(ctx context.Context, spec *Spec, merged, observed types.Record) (types.Record, error) {
	if spec.Update != nil {
		return spec.Update(ctx, r.api, merged, observed)
	}
	return r.api.Collection(spec.Kind).Update(ctx, merged)
}

func (r *Reconciler) mergeFunc(ctx context.Context, spec *Spec, desired types.Record) (merge.Func, error) {
	switch {
	case spec.MergeWith != nil:
		return spec.MergeWith(ctx, r.api, desired)
	case spec.Merge != nil:
		return spec.Merge, nil
	default:
		return merge.Merge, nil
	}
}

func (r *Reconciler) equal(spec *Spec, a, b types.Record) bool {
	if spec.Equal != nil {
		return spec.Equal(a, b)
	}
	return compare.Equal(a, b)
}

func (r *Reconciler) step(spec *Spec, step string) {
	r.logger.Debug().Str("kind", spec.Kind.Name).Str("step", step).Msg("Reconcile")
}

// checkpoint stops the task between controller calls once ctx is done
func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "task cancelled")
	}
	return nil
}

func identity(desired types.Record) string {
	if name := types.String(desired, KeyName); name != "" {
		return name
	}
	return types.String(desired, KeyURI)
}
