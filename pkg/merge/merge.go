package merge

import (
	"github.com/pkg/errors"

	"github.com/cuemby/ovconverge/pkg/canonical"
	"github.com/cuemby/ovconverge/pkg/types"
)

// MaxDepth caps recursion of the deep merger
const MaxDepth = 32

// ErrTooDeep is returned when a record nests deeper than MaxDepth
var ErrTooDeep = errors.New("record nesting exceeds maximum merge depth")

// Func computes the update body from an observed and a desired record
type Func func(observed, desired types.Record) (types.Record, error)

// Rule refines an already merged record in place. It sees the untouched
// observed and desired records so it can redo a sub-tree with domain logic.
type Rule func(merged, observed, desired types.Record) error

// Compose runs base and then every rule in order on its result
func Compose(base Func, rules ...Rule) Func {
	return func(observed, desired types.Record) (types.Record, error) {
		merged, err := base(observed, desired)
		if err != nil {
			return nil, err
		}
		for _, rule := range rules {
			if err := rule(merged, observed, desired); err != nil {
				return nil, err
			}
		}
		return merged, nil
	}
}

// Merge deep-merges desired into a copy of observed. Records merge
// recursively, sequences and scalars from desired replace the observed
// value, and keys desired does not mention survive untouched.
func Merge(observed, desired types.Record) (types.Record, error) {
	return merge(observed, desired, 0)
}

func merge(observed, desired types.Record, depth int) (types.Record, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	merged := types.DeepCopy(observed)
	if merged == nil {
		merged = types.Record{}
	}
	for k, dv := range desired {
		ov, ok := merged[k]
		if !ok || canonical.IsAbsent(ov) {
			merged[k] = types.CopyValue(dv)
			continue
		}
		orec, oIsRec := types.AsRecord(ov)
		drec, dIsRec := types.AsRecord(dv)
		if oIsRec && dIsRec {
			sub, err := merge(orec, drec, depth+1)
			if err != nil {
				return nil, err
			}
			merged[k] = sub
			continue
		}
		merged[k] = types.CopyValue(dv)
	}
	return merged, nil
}
