package modules

import (
	"context"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/compare"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/reconciler"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

func init() {
	Register(
		&Module{
			Name:      "oneview_ethernet_network",
			FactKey:   "ethernet_network",
			Kind:      client.EthernetNetworks,
			Rules:     resolve.NetworkRules,
			Lifecycle: true,
			Verbs: []Verb{
				{State: types.StateDefaultBandwidthReset, Run: resetBandwidth},
			},
		},
		&Module{
			Name:      "oneview_fc_network",
			FactKey:   "fc_network",
			Kind:      client.FCNetworks,
			Rules:     resolve.NetworkRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "oneview_fcoe_network",
			FactKey:   "fcoe_network",
			Kind:      client.FCoENetworks,
			Rules:     resolve.NetworkRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "oneview_network_set",
			FactKey:   "network_set",
			Kind:      client.NetworkSets,
			Rules:     resolve.NetworkSetRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "oneview_uplink_set",
			FactKey:   "uplink_set",
			Kind:      client.UplinkSets,
			Rules:     resolve.UplinkSetRules,
			Lifecycle: true,
			Customize: func(spec *reconciler.Spec, _ types.Params) {
				spec.ResolveBeforeLoad = true
				spec.Find = findUplinkSet
			},
		},
	)
}

// resetBandwidth restores the controller default bandwidth on the
// connection template of an ethernet network
func resetBandwidth(ctx context.Context, t *Task) (outcome.Result, error) {
	network, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	defaults, err := client.DefaultConnectionTemplate(ctx, t.API)
	if err != nil {
		return outcome.Result{}, err
	}

	templates := t.API.Collection(client.ConnectionTemplates)
	templateURI := types.String(network, "connectionTemplateUri")
	template, err := templates.GetByURI(ctx, templateURI)
	if err != nil {
		return outcome.Result{}, err
	}
	if template == nil {
		return outcome.Result{}, client.NewResourceNotFound("%s not found: %s", client.ConnectionTemplates.Label, templateURI)
	}

	current, _ := types.Child(template, "bandwidth")
	wanted, _ := types.Child(defaults, "bandwidth")
	if compare.Equal(current, wanted) {
		return t.unchanged(types.MsgBandwidthReset, network).
			WithFacts(types.Record{"connection_template": template}), nil
	}

	template["bandwidth"] = types.DeepCopy(wanted)
	updated, err := templates.Update(ctx, template)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgBandwidthReset, network).
		WithFacts(types.Record{"connection_template": updated}), nil
}

// findUplinkSet looks an uplink set up by name within its logical
// interconnect. Uplink set names are only unique per interconnect.
func findUplinkSet(ctx context.Context, api client.API, desired types.Record) (types.Record, error) {
	name := types.String(desired, reconciler.KeyName)
	if name == "" {
		return nil, client.NewValueError("%s name is required", client.UplinkSets.Label)
	}
	sets, err := api.Collection(client.UplinkSets).GetBy(ctx, reconciler.KeyName, name)
	if err != nil {
		return nil, err
	}
	li := types.String(desired, "logicalInterconnectUri")
	for _, s := range sets {
		if li == "" || types.String(s, "logicalInterconnectUri") == li {
			return s, nil
		}
	}
	return nil, nil
}
