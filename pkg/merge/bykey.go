package merge

import (
	"github.com/cuemby/ovconverge/pkg/canonical"
	"github.com/cuemby/ovconverge/pkg/types"
)

// KeyOptions tunes ByKey
type KeyOptions struct {
	// IgnoreWhenNull lists fields that, when the updated entry carries them
	// as null, are dropped so the original value survives.
	IgnoreWhenNull []string

	// ReplaceField and ReplaceSentinel: an updated entry whose ReplaceField
	// equals ReplaceSentinel keeps the original entry's value instead.
	ReplaceField    string
	ReplaceSentinel interface{}
}

// ByKey merges two sequences of records matched by the identity field key.
// The result follows the order of updated. Matched entries are the original
// entry shallowly overlaid with the updated one, unmatched updated entries
// are appended, and original entries missing from updated are dropped.
func ByKey(original, updated types.List, key string, opts KeyOptions) types.List {
	index := make(map[string]types.Record, len(original))
	for _, o := range original {
		rec, ok := types.AsRecord(o)
		if !ok || rec[key] == nil {
			continue
		}
		index[canonical.Scalar(rec[key])] = rec
	}

	merged := make(types.List, 0, len(updated))
	position := make(map[string]int, len(updated))
	for _, u := range updated {
		item, ok := types.AsRecord(u)
		if !ok || item[key] == nil {
			merged = append(merged, types.CopyValue(u))
			continue
		}
		item = types.DeepCopy(item)
		id := canonical.Scalar(item[key])

		if i, seen := position[id]; seen {
			base := merged[i].(types.Record)
			overlay(base, item, opts)
			continue
		}

		original, found := index[id]
		if !found {
			position[id] = len(merged)
			merged = append(merged, item)
			continue
		}
		base := types.DeepCopy(original)
		overlay(base, item, opts)
		position[id] = len(merged)
		merged = append(merged, base)
	}
	return merged
}

func overlay(base, item types.Record, opts KeyOptions) {
	for _, f := range opts.IgnoreWhenNull {
		if v, ok := item[f]; ok && v == nil {
			delete(item, f)
		}
	}
	if opts.ReplaceField != "" {
		if v, ok := item[opts.ReplaceField]; ok && canonical.Scalar(v) == canonical.Scalar(opts.ReplaceSentinel) {
			if ov, ok := base[opts.ReplaceField]; ok {
				item[opts.ReplaceField] = ov
			}
		}
	}
	for k, v := range item {
		base[k] = v
	}
}
