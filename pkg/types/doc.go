/*
Package types defines the data model shared by every ovconverge package.

Controller payloads vary by API version, so resources are not modelled as
Go structs. A resource is a Record: a tree of nested records, ordered
sequences and scalars exactly as decoded from JSON or YAML. The same shape is
used for the three states the engine works with:

  - Desired: the user's partial record. Omitted keys are unconstrained.
  - Observed: the record fetched from the controller, decorated with keys
    such as uri, eTag, status and timestamps.
  - Merged: Observed with Desired applied, used as the update body.

# Core Types

  - Record, List: the tagged tree (record | sequence | scalar | absent)
  - State: the lifecycle state a task asks for (present, absent, domain verbs)
  - Message: the closed set of outcome messages (CREATED, UPDATED, ...)
  - Outcome, Failure: the two result shapes consumed by the dispatcher
  - Params: the parameter record every task receives

# Usage

	desired := types.Record{"name": "net-A", "vlanId": 201}
	observed := types.DeepCopy(desired)
	observed["uri"] = "/rest/ethernet-networks/1"

	if rec, ok := types.Child(profile, "sanStorage"); ok {
		attachments, _ := types.AsList(rec["volumeAttachments"])
		_ = attachments
	}

DeepCopy also normalises map[interface{}]interface{} nodes into Records,
so callers copy user input once at the edge and mutate freely afterwards.
*/
package types
