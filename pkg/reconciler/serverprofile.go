package reconciler

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/cuemby/ovconverge/pkg/canonical"
	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/merge"
	"github.com/cuemby/ovconverge/pkg/metrics"
	"github.com/cuemby/ovconverge/pkg/outcome"
	"github.com/cuemby/ovconverge/pkg/profile"
	"github.com/cuemby/ovconverge/pkg/resolve"
	"github.com/cuemby/ovconverge/pkg/types"
)

// ErrAssignProfile is the controller error code raised when the chosen
// device bay was taken by a concurrent assignment
const ErrAssignProfile = "AssignProfileToDeviceBayError"

// DefaultAllocationAttempts bounds server hardware allocation retries
const DefaultAllocationAttempts = 25

// DefaultMaxRetryDelay caps the backoff between allocation attempts
const DefaultMaxRetryDelay = 30 * time.Second

const (
	keyServerHardwareURI     = "serverHardwareUri"
	keyTemplateURI           = "serverProfileTemplateUri"
	keyTemplateCompliance    = "templateCompliance"
	keyEnclosureGroupURI     = "enclosureGroupUri"
	keyServerHardwareTypeURI = "serverHardwareTypeUri"
	keyPowerState            = "powerState"
	keyOSDeploymentPlanURI   = "osDeploymentPlanUri"

	complianceCompliant = "Compliant"
	poweredOnMessage    = "cannot be changed while the server hardware is powered on"
)

// ProfileOptions tunes server profile convergence
type ProfileOptions struct {
	// AutoAssign picks an available server hardware when none is named
	AutoAssign bool
	Attempts   uint
	RetryDelay time.Duration
	// MaxRetryDelay caps the exponential backoff
	MaxRetryDelay time.Duration
}

// DefaultProfileOptions returns the options used when a task sets none
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{
		AutoAssign:    true,
		Attempts:      DefaultAllocationAttempts,
		RetryDelay:    5 * time.Second,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// ServerProfiles converges server profiles. It owns hardware allocation,
// the power cycle some updates need and template compliance.
type ServerProfiles struct {
	opts   ProfileOptions
	logger zerolog.Logger
}

// NewServerProfiles creates the server profile specialization
func NewServerProfiles(opts ProfileOptions) *ServerProfiles {
	if opts.Attempts == 0 {
		opts.Attempts = DefaultAllocationAttempts
	}
	if opts.MaxRetryDelay == 0 {
		opts.MaxRetryDelay = DefaultMaxRetryDelay
	}
	return &ServerProfiles{opts: opts, logger: log.WithComponent("serverprofile")}
}

// Spec returns the reconciler spec for server profiles
func (p *ServerProfiles) Spec(factKey string) *Spec {
	return &Spec{
		Kind:         client.ServerProfiles,
		FactKey:      factKey,
		Rules:        resolve.ServerProfileRules,
		MergeWith:    MergeProfile,
		Create:       p.create,
		Update:       p.update,
		BeforeDelete: p.beforeDelete,
	}
}

// TemplateSpec returns the reconciler spec for server profile templates,
// which share the profile merger but are never bound to hardware
func TemplateSpec(factKey string) *Spec {
	return &Spec{
		Kind:      client.ServerProfileTemplates,
		FactKey:   factKey,
		Rules:     resolve.ServerProfileRules,
		MergeWith: MergeProfile,
	}
}

// MergeProfile builds the server profile merger for desired. The nic typed
// custom attributes are read from the referenced OS deployment plan.
func MergeProfile(ctx context.Context, api client.API, desired types.Record) (merge.Func, error) {
	names, err := nicAttributes(ctx, api, desired)
	if err != nil {
		return nil, err
	}
	return profile.New(profile.WithNICAttributes(names...)).Func(), nil
}

func nicAttributes(ctx context.Context, api client.API, desired types.Record) ([]string, error) {
	v, ok := types.Lookup(desired, profile.KeyOSDeployment+"."+keyOSDeploymentPlanURI)
	uri, _ := v.(string)
	if !ok || uri == "" {
		return nil, nil
	}
	plan, err := api.Collection(client.OSDeploymentPlans).GetByURI(ctx, uri)
	if err != nil || plan == nil {
		return nil, err
	}
	var names []string
	for _, param := range client.Members(plan, "additionalParameters") {
		if strings.EqualFold(types.String(param, "caType"), "nic") {
			names = append(names, types.String(param, profile.KeyName))
		}
	}
	return names, nil
}

func (p *ServerProfiles) create(ctx context.Context, api client.API, body, _ types.Record) (types.Record, error) {
	if tpl := types.String(body, keyTemplateURI); tpl != "" {
		base, err := client.NewProfileFromTemplate(ctx, api, tpl)
		if err != nil {
			return nil, err
		}
		fn, err := MergeProfile(ctx, api, body)
		if err != nil {
			return nil, err
		}
		if body, err = fn(base, body); err != nil {
			return nil, err
		}
	}

	autoAssign := p.opts.AutoAssign && canonical.IsAbsent(body[keyServerHardwareURI])
	tried := make(map[string]struct{})

	var created types.Record
	err := retry.Do(
		func() error {
			if autoAssign {
				hw, err := p.pickServer(ctx, api, body, tried)
				if err != nil {
					return err
				}
				body[keyServerHardwareURI] = hw
			}
			var err error
			created, err = api.Collection(client.ServerProfiles).Create(ctx, body)
			return err
		},
		retry.Attempts(p.opts.Attempts),
		retry.Delay(p.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(p.opts.MaxRetryDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return client.IsTaskError(err, ErrAssignProfile)
		}),
		retry.OnRetry(func(n uint, err error) {
			// also called after the final attempt
			if n+1 >= p.opts.Attempts {
				return
			}
			metrics.AllocationRetries.Inc()
			p.logger.Warn().
				Uint("attempt", n+1).
				Str("hardware", types.String(body, keyServerHardwareURI)).
				Err(err).
				Msg("Server hardware allocation failed, retrying")
		}),
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// pickServer selects the first available target not tried yet and powers
// it off so the profile can be applied
func (p *ServerProfiles) pickServer(ctx context.Context, api client.API, body types.Record, tried map[string]struct{}) (string, error) {
	targets, err := client.AvailableServers(ctx, api, client.ServerFilter{
		EnclosureGroupURI:     types.String(body, keyEnclosureGroupURI),
		ServerHardwareTypeURI: types.String(body, keyServerHardwareTypeURI),
	})
	if err != nil {
		return "", err
	}
	for _, target := range targets {
		hw := types.String(target, keyServerHardwareURI)
		if hw == "" {
			continue
		}
		if _, done := tried[hw]; done {
			continue
		}
		tried[hw] = struct{}{}
		if types.String(target, keyPowerState) != client.PowerStateOff {
			if _, err := client.UpdatePowerState(ctx, api, hw, client.PowerOffRequest()); err != nil {
				return "", err
			}
		}
		p.logger.Info().Str("hardware", hw).Msg("Server hardware selected")
		return hw, nil
	}
	return "", client.NewResourceNotFound("No available server hardware")
}

func (p *ServerProfiles) update(ctx context.Context, api client.API, merged, observed types.Record) (types.Record, error) {
	coll := api.Collection(client.ServerProfiles)
	updated, err := coll.Update(ctx, merged)
	hw := types.String(observed, keyServerHardwareURI)
	if err == nil || !requiresPowerOff(err) || hw == "" {
		return updated, err
	}

	p.logger.Info().Str("hardware", hw).Msg("Powering off server hardware to apply profile update")
	if _, err := client.UpdatePowerState(ctx, api, hw, client.PowerOffRequest()); err != nil {
		return nil, err
	}
	metrics.PowerCycles.Inc()
	updated, err = coll.Update(ctx, merged)
	if _, perr := client.UpdatePowerState(ctx, api, hw, client.PowerOnRequest()); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func requiresPowerOff(err error) bool {
	te, ok := client.AsTaskError(err)
	return ok && strings.Contains(te.Message, poweredOnMessage)
}

func (p *ServerProfiles) beforeDelete(ctx context.Context, api client.API, observed types.Record) error {
	hw := types.String(observed, keyServerHardwareURI)
	if hw == "" {
		return nil
	}
	hardware, err := api.Collection(client.ServerHardware).GetByURI(ctx, hw)
	if err != nil || hardware == nil {
		return err
	}
	if types.String(hardware, keyPowerState) == client.PowerStateOff {
		return nil
	}
	_, err = client.UpdatePowerState(ctx, api, hw, client.PowerOffRequest())
	return err
}

// Compliant brings a profile back in line with its template. Updates the
// controller cannot apply online are wrapped in a power cycle.
func (p *ServerProfiles) Compliant(ctx context.Context, r *Reconciler, spec *Spec, data types.Record) (outcome.Result, error) {
	observed, err := r.Load(ctx, spec, data)
	if err != nil {
		return outcome.Result{}, err
	}
	if types.String(observed, keyTemplateURI) == "" || types.String(observed, keyTemplateCompliance) == complianceCompliant {
		return outcome.Unchanged(types.MsgAlreadyCompliant, spec.FactKey, observed), nil
	}

	api := r.API()
	uri := types.String(observed, KeyURI)
	preview, err := client.CompliancePreview(ctx, api, uri)
	if err != nil {
		return outcome.Result{}, err
	}
	hw := types.String(observed, keyServerHardwareURI)
	offline := hw != "" && preview["isOnlineUpdate"] == false

	if offline {
		if _, err := client.UpdatePowerState(ctx, api, hw, client.PowerOffRequest()); err != nil {
			return outcome.Result{}, err
		}
		metrics.PowerCycles.Inc()
	}
	if err := checkpoint(ctx); err != nil {
		return outcome.Result{}, err
	}
	updated, err := api.Collection(client.ServerProfiles).Patch(ctx, uri, "replace", "/"+keyTemplateCompliance, complianceCompliant)
	if err != nil {
		return outcome.Result{}, err
	}
	if offline {
		if _, err := client.UpdatePowerState(ctx, api, hw, client.PowerOnRequest()); err != nil {
			return outcome.Result{}, err
		}
	}
	return outcome.Changed(types.MsgRemediatedCompliance, spec.FactKey, updated), nil
}
