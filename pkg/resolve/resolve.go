package resolve

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cuemby/ovconverge/pkg/canonical"
	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Rule rewrites one name field into its URI field
type Rule struct {
	// Scope is the dotted path of the record holding the fields, "" for the
	// root. Sequences met on the way are fanned out element by element.
	Scope string
	Name  string
	URI   string
	// Kinds are probed in order, the first hit wins
	Kinds []client.Kind
	// Label names the kind in not-found errors, defaults to Kinds[0].Label
	Label string
	// Multi rules map a list of names to a list of URIs
	Multi bool
}

func (r Rule) label() string {
	if r.Label != "" {
		return r.Label
	}
	if len(r.Kinds) > 0 {
		return r.Kinds[0].Label
	}
	return r.Name
}

// Resolver looks names up on the controller. Lookups are cached for the
// lifetime of the Resolver, which is one task.
type Resolver struct {
	api    client.API
	cache  map[string]types.Record
	logger zerolog.Logger
}

// New creates a Resolver bound to api
func New(api client.API) *Resolver {
	return &Resolver{
		api:    api,
		cache:  make(map[string]types.Record),
		logger: log.WithComponent("resolve"),
	}
}

// Resolve returns a copy of desired with every name field named by rules
// replaced by the URI field. Name fields that resolve or hold null are
// removed. The first unresolvable name fails with ResourceNotFound.
func (r *Resolver) Resolve(ctx context.Context, desired types.Record, rules []Rule) (types.Record, error) {
	out := types.DeepCopy(desired)
	if out == nil {
		out = types.Record{}
	}
	for _, rule := range rules {
		for _, rec := range scoped(out, rule.Scope) {
			if err := r.apply(ctx, rec, rule); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (r *Resolver) apply(ctx context.Context, rec types.Record, rule Rule) error {
	value, hasName := rec[rule.Name]
	if !hasName {
		// A URI field holding a plain name is looked up too
		if s, ok := rec[rule.URI].(string); ok && !rule.Multi && s != "" && !client.IsURI(s) {
			uri, err := r.uri(ctx, s, rule)
			if err != nil {
				return err
			}
			rec[rule.URI] = uri
		}
		return nil
	}
	delete(rec, rule.Name)

	if canonical.IsAbsent(value) {
		return nil
	}

	if rule.Multi {
		names, ok := types.AsList(value)
		if !ok {
			names = types.List{value}
		}
		uris := make(types.List, 0, len(names))
		for _, n := range names {
			uri, err := r.uri(ctx, toString(n), rule)
			if err != nil {
				return err
			}
			uris = append(uris, uri)
		}
		rec[rule.URI] = uris
		return nil
	}

	uri, err := r.uri(ctx, toString(value), rule)
	if err != nil {
		return err
	}
	rec[rule.URI] = uri
	return nil
}

func (r *Resolver) uri(ctx context.Context, name string, rule Rule) (string, error) {
	if client.IsURI(name) {
		return name, nil
	}
	found, err := r.Lookup(ctx, name, rule.label(), rule.Kinds...)
	if err != nil {
		return "", err
	}
	return types.String(found, "uri"), nil
}

// Lookup returns the first resource named name among kinds, probed in order.
// A miss in every kind is a ResourceNotFound "<label> not found: <name>".
func (r *Resolver) Lookup(ctx context.Context, name, label string, kinds ...client.Kind) (types.Record, error) {
	for _, kind := range kinds {
		key := kind.Name + "\x00" + name
		if rec, ok := r.cache[key]; ok {
			return rec, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		rec, err := r.api.Collection(kind).GetByName(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up %s %q", kind.Label, name)
		}
		if rec != nil {
			r.cache[key] = rec
			r.logger.Debug().
				Str("kind", kind.Name).
				Str("name", name).
				Str("uri", types.String(rec, "uri")).
				Msg("Resolved name")
			return rec, nil
		}
	}
	return nil, client.NewResourceNotFound("%s not found: %s", label, name)
}

// scoped returns the records addressed by a dotted scope path
func scoped(root types.Record, scope string) []types.Record {
	current := []interface{}{root}
	if scope == "" {
		return []types.Record{root}
	}
	for _, seg := range strings.Split(scope, ".") {
		var next []interface{}
		for _, c := range current {
			rec, ok := types.AsRecord(c)
			if !ok {
				continue
			}
			v, ok := rec[seg]
			if !ok {
				continue
			}
			if l, ok := types.AsList(v); ok {
				next = append(next, l...)
			} else {
				next = append(next, v)
			}
		}
		current = next
	}

	out := make([]types.Record, 0, len(current))
	for _, c := range current {
		if rec, ok := c.(types.Record); ok && rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return canonical.Scalar(v)
}
