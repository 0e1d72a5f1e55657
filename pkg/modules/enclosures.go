package modules

import (
	"context"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/reconciler"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

func init() {
	Register(
		&Module{
			Name:      "oneview_enclosure_group",
			FactKey:   "enclosure_group",
			Kind:      client.EnclosureGroups,
			Rules:     resolve.EnclosureGroupRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "oneview_enclosure",
			FactKey:   "enclosure",
			Kind:      client.Enclosures,
			Rules:     resolve.EnclosureRules,
			Lifecycle: true,
			Verbs: []Verb{
				{State: types.StateRefreshed, Run: refresh},
				{State: types.StateReconfigured, Run: reconfigure},
			},
		},
	)
}

// refresh asks the controller to re-read a resource. The request body is
// data.refreshStateConfig, RefreshPending when omitted.
func refresh(ctx context.Context, t *Task) (outcome.Result, error) {
	resource, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	state, ok := types.Child(t.Params.Data, "refreshStateConfig")
	if !ok || len(state) == 0 {
		state = types.Record{"refreshState": "RefreshPending"}
	}
	resp, err := client.UpdateRefreshState(ctx, t.API, types.String(resource, reconciler.KeyURI), state)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgRefreshed, resultOr(resp, resource)), nil
}

func reconfigure(ctx context.Context, t *Task) (outcome.Result, error) {
	enclosure, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	resp, err := client.UpdateConfiguration(ctx, t.API, types.String(enclosure, reconciler.KeyURI))
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgReconfigured, resultOr(resp, enclosure)), nil
}
