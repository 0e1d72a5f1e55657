package modules

import (
	"context"
	"net/http"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/merge"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/reconciler"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

const keyProviderDisplayName = "providerDisplayName"

func init() {
	Register(
		&Module{
			Name:      "oneview_storage_system",
			FactKey:   "storage_system",
			Kind:      client.StorageSystems,
			Lifecycle: true,
		},
		&Module{
			Name:      "oneview_storage_pool",
			FactKey:   "storage_pool",
			Kind:      client.StoragePools,
			Rules:     resolve.StoragePoolRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "oneview_volume",
			FactKey:   "storage_volume",
			Kind:      client.StorageVolumes,
			Rules:     resolve.VolumeRules,
			Lifecycle: true,
			Verbs: []Verb{
				{State: types.StateRepaired, Run: repairVolume},
				{State: types.StateSnapshotCreated, Run: createSnapshot},
				{State: types.StateSnapshotDeleted, Run: deleteSnapshot},
			},
		},
		&Module{
			Name:      "oneview_storage_volume_template",
			FactKey:   "storage_volume_template",
			Kind:      client.StorageVolumeTemplates,
			Rules:     resolve.VolumeTemplateRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "oneview_san_manager",
			FactKey:   "san_manager",
			Kind:      client.SANManagers,
			Lifecycle: true,
			Customize: func(spec *reconciler.Spec, _ types.Params) {
				spec.Create = createSANManager
				spec.Merge = merge.Compose(merge.Merge, func(merged, _, _ types.Record) error {
					delete(merged, keyProviderDisplayName)
					return nil
				})
			},
			Verbs: []Verb{
				{State: types.StateConnectionInfoSet, Run: setConnectionInfo},
			},
		},
		&Module{
			Name:      "oneview_sas_logical_jbod",
			FactKey:   "sas_logical_jbod",
			Kind:      client.SASLogicalJBODs,
			Lifecycle: true,
		},
	)
}

func repairVolume(ctx context.Context, t *Task) (outcome.Result, error) {
	volume, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	if _, err := client.RepairVolume(ctx, t.API, types.String(volume, reconciler.KeyURI)); err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgRepaired, volume), nil
}

func findSnapshot(ctx context.Context, t *Task) (types.Record, types.Record, types.Record, error) {
	params, err := t.Section("snapshotParameters")
	if err != nil {
		return nil, nil, nil, err
	}
	if types.String(params, reconciler.KeyName) == "" {
		return nil, nil, nil, client.NewValueError("snapshotParameters.name is required")
	}
	volume, err := t.Load(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	snapshots, err := client.Snapshots(ctx, t.API, types.String(volume, reconciler.KeyURI))
	if err != nil {
		return nil, nil, nil, err
	}
	matches := client.FilterMembers(snapshots, reconciler.KeyName, types.String(params, reconciler.KeyName))
	if len(matches) == 0 {
		return volume, params, nil, nil
	}
	return volume, params, matches[0], nil
}

func createSnapshot(ctx context.Context, t *Task) (outcome.Result, error) {
	volume, params, snapshot, err := findSnapshot(ctx, t)
	if err != nil {
		return outcome.Result{}, err
	}
	if snapshot != nil {
		return t.unchanged(types.MsgSnapshotPresent, volume).
			WithFacts(types.Record{"storage_volume_snapshot": snapshot}), nil
	}
	created, err := client.CreateSnapshot(ctx, t.API, types.String(volume, reconciler.KeyURI), params)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgSnapshotCreated, volume).
		WithFacts(types.Record{"storage_volume_snapshot": created}), nil
}

func deleteSnapshot(ctx context.Context, t *Task) (outcome.Result, error) {
	volume, _, snapshot, err := findSnapshot(ctx, t)
	if err != nil {
		return outcome.Result{}, err
	}
	if snapshot == nil {
		return t.unchanged(types.MsgSnapshotAbsent, volume), nil
	}
	if err := client.DeleteSnapshot(ctx, t.API, types.String(snapshot, reconciler.KeyURI)); err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgSnapshotDeleted, volume), nil
}

// createSANManager registers a device manager under the provider named by
// providerDisplayName
func createSANManager(ctx context.Context, api client.API, body, _ types.Record) (types.Record, error) {
	provider := types.String(body, keyProviderDisplayName)
	if provider == "" {
		return nil, client.NewValueError("%s is required to add a %s", keyProviderDisplayName, client.SANManagers.Label)
	}
	providers, err := api.Collection(client.SANProviders).GetBy(ctx, "displayName", provider)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, client.NewResourceNotFound("%s not found: %s", client.SANProviders.Label, provider)
	}

	body = types.DeepCopy(body)
	delete(body, keyProviderDisplayName)
	return api.Do(ctx, http.MethodPost, types.String(providers[0], reconciler.KeyURI)+"/device-managers", body)
}

func setConnectionInfo(ctx context.Context, t *Task) (outcome.Result, error) {
	info, ok := types.AsList(t.Data()["connectionInfo"])
	if !ok || len(info) == 0 {
		return outcome.Result{}, client.NewValueError("%s requires data.connectionInfo", t.Params.State)
	}
	manager, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	body := types.DeepCopy(manager)
	body["connectionInfo"] = types.CopyValue(info)
	updated, err := t.API.Collection(client.SANManagers).Update(ctx, body)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgConnectionInfoSet, updated), nil
}
