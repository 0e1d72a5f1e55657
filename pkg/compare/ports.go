package compare

import (
	"sort"
	"strings"

	"github.com/cuemby/ovconverge/pkg/canonical"
	"github.com/cuemby/ovconverge/pkg/types"
)

// portFingerprints reduces each logicalPortConfigInfos element to the set of
// "{type}_{relativeValue}" strings of its locationEntries. ok is false when
// an element is not a record, so the caller falls back to the list rule.
func portFingerprints(a, b types.List) ([]string, []string, bool) {
	fa, ok := fingerprintList(a)
	if !ok {
		return nil, nil, false
	}
	fb, ok := fingerprintList(b)
	if !ok {
		return nil, nil, false
	}
	return fa, fb, true
}

func fingerprintList(l types.List) ([]string, bool) {
	out := make([]string, 0, len(l))
	for _, e := range l {
		rec, ok := types.AsRecord(e)
		if !ok {
			return nil, false
		}
		out = append(out, fingerprint(rec))
	}
	return out, true
}

func fingerprint(port types.Record) string {
	entries, _ := types.AsList(port["locationEntries"])
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		entry, ok := types.AsRecord(e)
		if !ok {
			continue
		}
		set[canonical.Scalar(entry["type"])+"_"+canonical.Scalar(entry["relativeValue"])] = struct{}{}
	}
	parts := make([]string, 0, len(set))
	for p := range set {
		parts = append(parts, p)
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func equalMultisets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}
