package modules

import (
	"context"
	"time"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/reconciler"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Server profile task params
const (
	ParamAutoAssign = "auto_assign_server_hardware"
	ParamRetryDelay = "allocation_retry_delay"
)

func init() {
	Register(
		&Module{
			Name:      "oneview_server_hardware",
			FactKey:   "server_hardware",
			Kind:      client.ServerHardware,
			Rules:     []resolve.Rule{resolve.ScopeRule},
			Lifecycle: true,
			Verbs: []Verb{
				{State: types.StatePowerStateSet, Run: setPowerState},
				{State: types.StateRefreshed, Run: refresh},
				{State: types.StateUIDStateOn, Run: setUIDState(client.PowerStateOn)},
				{State: types.StateUIDStateOff, Run: setUIDState(client.PowerStateOff)},
			},
		},
		&Module{
			Name:      "oneview_server_profile",
			FactKey:   "server_profile",
			Kind:      client.ServerProfiles,
			Rules:     resolve.ServerProfileRules,
			Lifecycle: true,
			Customize: func(spec *reconciler.Spec, params types.Params) {
				*spec = *serverProfiles(params).Spec(spec.FactKey)
			},
			Verbs: []Verb{
				{State: types.StateCompliant, Run: profileCompliant},
			},
		},
		&Module{
			Name:      "oneview_server_profile_template",
			FactKey:   "server_profile_template",
			Kind:      client.ServerProfileTemplates,
			Rules:     resolve.ServerProfileRules,
			Lifecycle: true,
			Customize: func(spec *reconciler.Spec, _ types.Params) {
				*spec = *reconciler.TemplateSpec(spec.FactKey)
			},
		},
	)
}

// serverProfiles reads the allocation options from the task params
func serverProfiles(params types.Params) *reconciler.ServerProfiles {
	opts := reconciler.DefaultProfileOptions()
	if v, ok := params.Params[ParamAutoAssign].(bool); ok {
		opts.AutoAssign = v
	}
	if v, ok := params.Params[ParamRetryDelay].(string); ok {
		if d, err := time.ParseDuration(v); err == nil {
			opts.RetryDelay = d
		}
	}
	return reconciler.NewServerProfiles(opts)
}

func profileCompliant(ctx context.Context, t *Task) (outcome.Result, error) {
	return serverProfiles(t.Params).Compliant(ctx, t.Reconciler, t.Spec, t.Params.Data)
}

// setPowerState applies data.powerStateData unless the hardware is already
// in the requested state
func setPowerState(ctx context.Context, t *Task) (outcome.Result, error) {
	request, err := t.Section("powerStateData")
	if err != nil {
		return outcome.Result{}, err
	}
	hardware, err := t.Load(ctx)
	if err != nil {
		return outcome.Result{}, err
	}
	if types.String(hardware, "powerState") == types.String(request, "powerState") {
		return t.unchanged(types.MsgAlreadyInPowerState, hardware), nil
	}
	resp, err := client.UpdatePowerState(ctx, t.API, types.String(hardware, reconciler.KeyURI), request)
	if err != nil {
		return outcome.Result{}, err
	}
	return t.changed(types.MsgPowerStateUpdated, resultOr(resp, hardware)), nil
}

func setUIDState(state string) Handler {
	return func(ctx context.Context, t *Task) (outcome.Result, error) {
		hardware, err := t.Load(ctx)
		if err != nil {
			return outcome.Result{}, err
		}
		if types.String(hardware, "uidState") == state {
			return t.unchanged(types.MsgAlreadyInUIDState, hardware), nil
		}
		resp, err := client.SetUIDState(ctx, t.API, types.String(hardware, reconciler.KeyURI), state)
		if err != nil {
			return outcome.Result{}, err
		}
		return t.changed(types.MsgUIDStateChanged, resultOr(resp, hardware)), nil
	}
}
