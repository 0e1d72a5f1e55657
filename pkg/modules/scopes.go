package modules

import (
	"context"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/reconciler"
	"github.com/cuemby/ovconverge/pkg/types"
)

func init() {
	Register(&Module{
		Name:      "oneview_scope",
		FactKey:   "scope",
		Kind:      client.Scopes,
		Lifecycle: true,
		Verbs: []Verb{
			{State: types.StateResourceAssignments, Run: updateResourceAssignments},
		},
	})
}

func updateResourceAssignments(ctx context.Context, t *Task) (outcome.Result, error) {
	assignments, err := t.Section("resourceAssignments")
	if err != nil {
		return outcome.Result{}, err
	}
	added := stringList(assignments["addedResourceUris"])
	removed := stringList(assignments["removedResourceUris"])

	scope, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	if len(added) == 0 && len(removed) == 0 {
		return t.unchanged(types.MsgResourceAssignments, scope), nil
	}
	resp, err := client.UpdateResourceAssignments(ctx, t.API, types.String(scope, reconciler.KeyURI), added, removed)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgResourceAssignments, resultOr(resp, scope)), nil
}
