/*
Package compare implements the semantic comparator that decides whether an
observed controller resource already matches the state a task wants.

Rules, applied to every key in the union of both records:

  - a key missing on one side matches only an absent value on the other
    (null, "", [], {} or false, see package canonical)
  - two absent values match
  - records recurse, sequences use the list rule, scalars compare canonically

# List Rule

Sequences must have equal length. Both sides are stably sorted, by identity
key (id, connectionId, deviceSlot, sasLogicalJBODId, name) when every element
carries one and by canonical stringification otherwise, then compared
position by position.

# Uplink Ports

The logicalPortConfigInfos key compares the multiset of location
fingerprints ({type}_{relativeValue} per location entry) so two port lists
are equal when they name the same physical ports, in any order and at any
speed. The strict comparator (WithStrict, used for logical interconnect
groups) skips that shortcut and compares element by element.

# Usage

	if compare.Equal(observed, merged) {
		// already converged
	}

	path, equal := compare.New().Difference(observed, merged)
	logger.Debug().Str("path", path).Bool("equal", equal).Msg("drift")
*/
package compare
