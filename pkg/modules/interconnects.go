package modules

import (
	"context"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/compare"
	"github.com/cuemby/ovconverge/pkg/merge"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/reconciler"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

const consistent = "CONSISTENT"

func init() {
	Register(
		&Module{
			Name:      "oneview_logical_interconnect_group",
			FactKey:   "logical_interconnect_group",
			Kind:      client.LogicalInterconnectGroups,
			Rules:     resolve.LogicalInterconnectGroupRules,
			Lifecycle: true,
			Customize: func(spec *reconciler.Spec, _ types.Params) {
				spec.Equal = compare.EqualStrict
			},
		},
		&Module{
			Name:    "oneview_logical_interconnect",
			FactKey: "logical_interconnect",
			Kind:    client.LogicalInterconnects,
			Verbs: []Verb{
				{State: types.StateCompliant, Run: interconnectCompliant},
				{State: types.StateEthernetSettingsUpdated, Run: updateEthernetSettings},
				{State: types.StateConfigurationUpdated, Run: updateConfiguration},
				{State: types.StateFirmwareInstalled, Run: installFirmware},
			},
		},
		&Module{
			Name:    "oneview_sas_logical_interconnect",
			FactKey: "sas_logical_interconnect",
			Kind:    client.SASLogicalInterconnects,
			Verbs: []Verb{
				{State: types.StateCompliant, Run: sasCompliant},
				{State: types.StateConfigurationUpdated, Run: updateConfiguration},
				{State: types.StateFirmwareUpdated, Run: installFirmware},
				{State: types.StateDriveEnclosureReplaced, Run: replaceDriveEnclosure},
			},
		},
	)
}

func interconnectCompliant(ctx context.Context, t *Task) (outcome.Result, error) {
	li, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	if types.String(li, "consistencyStatus") == consistent {
		return t.unchanged(types.MsgAlreadyCompliant, li), nil
	}
	resp, err := client.UpdateCompliance(ctx, t.API, types.String(li, reconciler.KeyURI))
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgRemediatedCompliance, resultOr(resp, li)), nil
}

func updateEthernetSettings(ctx context.Context, t *Task) (outcome.Result, error) {
	desired, err := t.Section("ethernetSettings")
	if err != nil {
		return outcome.Result{}, err
	}
	li, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}

	current, _ := types.Child(li, "ethernetSettings")
	merged, err := merge.Merge(current, desired)
	if err != nil {
		return outcome.Result{}, err
	}
	if compare.Equal(current, merged) {
		return t.unchanged(types.MsgAlreadyPresent, li), nil
	}
	resp, err := client.UpdateEthernetSettings(ctx, t.API, types.String(li, reconciler.KeyURI), merged)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgSettingsUpdated, resultOr(resp, li)), nil
}

func updateConfiguration(ctx context.Context, t *Task) (outcome.Result, error) {
	li, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	resp, err := client.UpdateConfiguration(ctx, t.API, types.String(li, reconciler.KeyURI))
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgConfigurationUpdated, resultOr(resp, li)), nil
}

// installFirmware stages or activates a service pack. sppName is resolved
// against the firmware drivers.
func installFirmware(ctx context.Context, t *Task) (outcome.Result, error) {
	firmware, err := t.Section("firmware")
	if err != nil {
		return outcome.Result{}, err
	}
	li, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	if name := types.String(firmware, "sppName"); name != "" {
		spp, err := t.Reconciler.Resolver().Lookup(ctx, name, client.FirmwareDrivers.Label, client.FirmwareDrivers)
		if err != nil {
			return outcome.Result{}, err
		}
		delete(firmware, "sppName")
		firmware["sppUri"] = spp[reconciler.KeyURI]
	}

	resp, err := client.InstallFirmware(ctx, t.API, types.String(li, reconciler.KeyURI), firmware)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgFirmwareInstalled, li).
		WithFacts(types.Record{"li_firmware": resp}), nil
}

// sasCompliant updates every SAS logical interconnect listed in
// data.logicalInterconnectUris, or the one named by data.name
func sasCompliant(ctx context.Context, t *Task) (outcome.Result, error) {
	uris := stringList(t.Data()["logicalInterconnectUris"])
	var li types.Record
	if len(uris) == 0 {
		var err error
		if li, err = t.Load(ctx); err != nil {
			return outcome.Result{}, err
		}
		if types.String(li, "consistencyStatus") == consistent {
			return t.unchanged(types.MsgAlreadyCompliant, li), nil
		}
		uris = []string{types.String(li, reconciler.KeyURI)}
	}
	resp, err := client.UpdateSASCompliance(ctx, t.API, uris...)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgRemediatedCompliance, resultOr(resp, li)), nil
}

func replaceDriveEnclosure(ctx context.Context, t *Task) (outcome.Result, error) {
	body, err := t.Section("replaceDriveEnclosure")
	if err != nil {
		return outcome.Result{}, err
	}
	li, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	resp, err := client.ReplaceDriveEnclosure(ctx, t.API, types.String(li, reconciler.KeyURI), body)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgDriveEnclosureReplace, resultOr(resp, li)), nil
}
