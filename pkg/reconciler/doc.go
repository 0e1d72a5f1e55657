/*
Package reconciler converges one controller resource toward a desired state.

Every task runs the same state machine. The reconciler loads the observed
resource, rewrites names into URIs, merges the desired record onto the
observed one and compares the result. Only a drift produces a mutation, so a
second run of the same task reports ALREADY_PRESENT.

# Architecture

	          ┌────────── state=present ──────────┐
	          ▼                                   │
	      [LOAD] ── missing ──► [RESOLVE] ──► [CREATE] ──► CREATED
	          │
	          │ found
	          ▼
	      [RESOLVE] ──► [MERGE] ──► [COMPARE] ── equal ──► ALREADY_PRESENT
	                                    │
	                                    │ drift
	                                    ▼
	                                [UPDATE] ──► UPDATED

	          ┌────────── state=absent ───────────┐
	          ▼                                   │
	      [LOAD] ── missing ──► ALREADY_ABSENT
	          │
	          │ found
	          ▼
	      [BEFORE_DELETE] ──► [DELETE] ──► DELETED

Name resolution always happens before any mutation. An unknown name fails
the task with ResourceNotFound and the controller is left untouched. The
context is checked between controller calls, so a cancelled task stops at
the next step boundary.

# Specs

A Spec describes one resource kind. Most kinds only set Kind, FactKey and
Rules; the hooks cover the rest:

  - Find: lookup other than by name, e.g. uplink sets scoped by
    logical interconnect
  - Create, Update: custom write paths such as template based creation
  - BeforeDelete: side effects required before removal
  - Merge, MergeWith: domain merge rules
  - Equal: the comparator, compare.EqualStrict for interconnect groups

# Server Profiles

ServerProfiles extends the generic flow:

  - Create from a template starts from the template's new-profile body
  - Without a named server hardware an available one is picked, powered
    off and assigned. AssignProfileToDeviceBayError retries with
    exponential backoff and another target, up to 25 attempts
  - An update refused because the hardware is powered on is retried inside
    a power cycle (PressAndHold, update, MomentaryPress)
  - Compliant patches templateCompliance, powering the hardware off first
    when the compliance preview reports an offline update

# Usage

	r := reconciler.New(api)
	spec := &reconciler.Spec{
		Kind:    client.EthernetNetworks,
		FactKey: "ethernet_network",
		Rules:   resolve.NetworkRules,
	}

	res, err := r.Present(ctx, spec, types.Record{"name": "net-A", "vlanId": 201})
	if err != nil {
		return outcome.Fail(err)
	}
	fmt.Println(res.Msg) // CREATED, UPDATED or ALREADY_PRESENT

# Logging

Each step logs at debug level with the resource kind. A drift logs the
go-cmp diff between the observed and merged records.
*/
package reconciler
