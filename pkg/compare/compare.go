package compare

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/ovconverge/pkg/canonical"
	"github.com/cuemby/ovconverge/pkg/types"
)

// DefaultMaxDepth caps recursion. Controller payloads are trees a handful of
// levels deep; anything past the cap compares unequal.
const DefaultMaxDepth = 32

// PortConfigKey names the uplink-set physical port list compared by
// location fingerprint instead of element equality.
const PortConfigKey = "logicalPortConfigInfos"

// IdentityKeys are the record keys recognised as element identities when
// ordering sequences of records, in priority order.
var IdentityKeys = []string{"id", "connectionId", "deviceSlot", "sasLogicalJBODId", "name"}

// Comparator decides whether two records are semantically equal
type Comparator struct {
	strict   bool
	maxDepth int
}

// Option configures a Comparator
type Option func(*Comparator)

// WithStrict disables the port-fingerprint shortcut. Logical interconnect
// groups compare nested sequences element by element.
func WithStrict() Option {
	return func(c *Comparator) { c.strict = true }
}

// WithMaxDepth overrides DefaultMaxDepth
func WithMaxDepth(depth int) Option {
	return func(c *Comparator) { c.maxDepth = depth }
}

// New creates a Comparator
func New(opts ...Option) *Comparator {
	c := &Comparator{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	defaultComparator = New()
	strictComparator  = New(WithStrict())
)

// Equal compares a and b with the default comparator
func Equal(a, b types.Record) bool {
	return defaultComparator.Equal(a, b)
}

// EqualStrict compares a and b with the strict comparator
func EqualStrict(a, b types.Record) bool {
	return strictComparator.Equal(a, b)
}

// Equal reports whether a and b are semantically equal
func (c *Comparator) Equal(a, b types.Record) bool {
	_, equal := c.Difference(a, b)
	return equal
}

// Difference returns the dotted path of the first difference between a and
// b, walking keys in sorted order. The path is empty when they are equal.
func (c *Comparator) Difference(a, b types.Record) (string, bool) {
	path, ok := c.records(a, b, 0)
	if ok {
		return "", true
	}
	return strings.TrimPrefix(path, "."), false
}

func (c *Comparator) records(a, b types.Record, depth int) (string, bool) {
	if depth > c.maxDepth {
		return "", false
	}
	for _, k := range unionKeys(a, b) {
		av, inA := a[k]
		bv, inB := b[k]
		if !inA || !inB {
			other := av
			if !inA {
				other = bv
			}
			if !canonical.IsAbsent(other) {
				return "." + k, false
			}
			continue
		}
		if path, ok := c.values(k, av, bv, depth+1); !ok {
			return "." + k + path, false
		}
	}
	return "", true
}

func (c *Comparator) values(key string, a, b interface{}, depth int) (string, bool) {
	aAbsent, bAbsent := canonical.IsAbsent(a), canonical.IsAbsent(b)
	if aAbsent && bAbsent {
		return "", true
	}

	ar, aRec := types.AsRecord(a)
	br, bRec := types.AsRecord(b)
	if aRec || bRec {
		if !(aRec && bRec) {
			return "", false
		}
		return c.records(ar, br, depth)
	}

	al, aList := types.AsList(a)
	bl, bList := types.AsList(b)
	if aList || bList {
		if !(aList && bList) {
			return "", false
		}
		if key == PortConfigKey && !c.strict {
			if fa, fb, ok := portFingerprints(al, bl); ok {
				return "", equalMultisets(fa, fb)
			}
		}
		return c.lists(al, bl, depth)
	}

	return "", canonical.Scalar(a) == canonical.Scalar(b)
}

func (c *Comparator) lists(a, b types.List, depth int) (string, bool) {
	if depth > c.maxDepth {
		return "", false
	}
	if len(a) != len(b) {
		return "", false
	}
	key := identityKey(a, b)
	sa, sb := sortedCopy(a, key), sortedCopy(b, key)
	for i := range sa {
		if path, ok := c.values("", sa[i], sb[i], depth+1); !ok {
			return "[" + strconv.Itoa(i) + "]" + path, false
		}
	}
	return "", true
}

// identityKey returns the first recognised identity key carried by every
// element of both sequences, or "" when elements are not all keyed records.
func identityKey(a, b types.List) string {
	for _, key := range IdentityKeys {
		if keyedBy(a, key) && keyedBy(b, key) {
			return key
		}
	}
	return ""
}

func keyedBy(l types.List, key string) bool {
	for _, e := range l {
		rec, ok := types.AsRecord(e)
		if !ok || canonical.IsAbsent(rec[key]) {
			return false
		}
	}
	return true
}

func sortedCopy(l types.List, key string) types.List {
	type entry struct {
		sortKey string
		value   interface{}
	}
	entries := make([]entry, len(l))
	for i, e := range l {
		sk := canonical.String(e)
		if key != "" {
			rec, _ := types.AsRecord(e)
			sk = canonical.Scalar(rec[key]) + "\x00" + sk
		}
		entries[i] = entry{sortKey: sk, value: e}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].sortKey < entries[j].sortKey
	})
	out := make(types.List, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}

func unionKeys(a, b types.Record) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for _, r := range []types.Record{a, b} {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
