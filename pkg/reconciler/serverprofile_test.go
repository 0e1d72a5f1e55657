package reconciler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/client/fake"
	"github.com/cuemby/ovconverge/pkg/metrics"
	"github.com/cuemby/ovconverge/pkg/types"
)

const (
	hardwareA = "/rest/server-hardware/a"
	hardwareB = "/rest/server-hardware/b"
	targets   = "/rest/server-profiles/available-targets"
)

func testProfiles() *ServerProfiles {
	return NewServerProfiles(ProfileOptions{AutoAssign: true, Attempts: 25, RetryDelay: time.Millisecond})
}

func acceptPower(api *fake.API, uris ...string) {
	for _, uri := range uris {
		api.Handle(http.MethodPut, uri+"/powerState", func(body interface{}) (types.Record, error) {
			return types.Record{}, nil
		})
	}
}

func mutationSummary(api *fake.API) []string {
	var out []string
	for _, c := range api.Mutations() {
		entry := c.Method + " " + c.URI
		if rec, ok := c.Body.(types.Record); ok && rec["powerControl"] != nil {
			entry += " " + types.String(rec, "powerState") + "/" + types.String(rec, "powerControl")
		}
		out = append(out, entry)
	}
	return out
}

func TestServerProfileAllocationRetry(t *testing.T) {
	api := fake.New()
	api.Handle(http.MethodGet, targets, func(body interface{}) (types.Record, error) {
		return types.Record{"targets": types.List{
			types.Record{"serverHardwareUri": hardwareA, "powerState": "Off"},
			types.Record{"serverHardwareUri": hardwareB, "powerState": "On"},
		}}, nil
	})
	acceptPower(api, hardwareB)
	api.FailNext(http.MethodPost, client.ServerProfiles.Path, client.NewTaskError(ErrAssignProfile, "bay is taken"))

	before := testutil.ToFloat64(metrics.AllocationRetries)
	p := testProfiles()
	res, err := New(api).Present(context.Background(), p.Spec("server_profile"), types.Record{"name": "web-1"})
	require.NoError(t, err)

	assert.Equal(t, types.MsgCreated, res.Msg)
	assert.Equal(t, hardwareB, res.Facts["server_profile"].(types.Record)["serverHardwareUri"])
	assert.Equal(t, []string{
		"POST /rest/server-profiles",
		"PUT " + hardwareB + "/powerState Off/PressAndHold",
		"POST /rest/server-profiles",
	}, mutationSummary(api))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AllocationRetries))
}

func TestServerProfileAllocationExhausted(t *testing.T) {
	api := fake.New()
	taken := make([]error, DefaultAllocationAttempts)
	for i := range taken {
		taken[i] = client.NewTaskError(ErrAssignProfile, "bay is taken")
	}
	api.FailNext(http.MethodPost, client.ServerProfiles.Path, taken...)

	before := testutil.ToFloat64(metrics.AllocationRetries)
	p := NewServerProfiles(ProfileOptions{
		Attempts:      DefaultAllocationAttempts,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
	})

	start := time.Now()
	_, err := New(api).Present(context.Background(), p.Spec("server_profile"), types.Record{
		"name":              "web-1",
		"serverHardwareUri": hardwareA,
	})
	require.Error(t, err)
	assert.True(t, client.IsTaskError(err, ErrAssignProfile))
	assert.Less(t, time.Since(start), 5*time.Second)

	posts := 0
	for _, c := range api.Mutations() {
		if c.Method == http.MethodPost && c.URI == client.ServerProfiles.Path {
			posts++
		}
	}
	assert.Equal(t, DefaultAllocationAttempts, posts)
	assert.Equal(t, before+float64(DefaultAllocationAttempts-1), testutil.ToFloat64(metrics.AllocationRetries))
}

func TestServerProfileOptionsCapBackoff(t *testing.T) {
	assert.Equal(t, DefaultMaxRetryDelay, DefaultProfileOptions().MaxRetryDelay)
	assert.Equal(t, DefaultMaxRetryDelay, NewServerProfiles(ProfileOptions{}).opts.MaxRetryDelay)
}

func TestServerProfileAllocationOtherErrorSurfaces(t *testing.T) {
	api := fake.New()
	api.Handle(http.MethodGet, targets, func(body interface{}) (types.Record, error) {
		return types.Record{"targets": types.List{types.Record{"serverHardwareUri": hardwareA, "powerState": "Off"}}}, nil
	})
	api.FailNext(http.MethodPost, client.ServerProfiles.Path, client.NewTaskError("InvalidBIOSSettings", "bad bios"))

	_, err := New(api).Present(context.Background(), testProfiles().Spec("server_profile"), types.Record{"name": "web-1"})
	require.Error(t, err)
	assert.True(t, client.IsTaskError(err, "InvalidBIOSSettings"))
	assert.Len(t, api.Mutations(), 1)
}

func TestServerProfileNoAvailableHardware(t *testing.T) {
	api := fake.New()
	api.Handle(http.MethodGet, targets, func(body interface{}) (types.Record, error) {
		return types.Record{"targets": types.List{}}, nil
	})

	_, err := New(api).Present(context.Background(), testProfiles().Spec("server_profile"), types.Record{"name": "web-1"})
	require.Error(t, err)
	assert.True(t, client.IsResourceNotFound(err))
	assert.Empty(t, api.Mutations())
}

func TestServerProfileNamedHardwareSkipsSelection(t *testing.T) {
	api := fake.New()
	api.Add(client.ServerHardware, types.Record{"name": "hw-a", "uri": hardwareA})

	res, err := New(api).Present(context.Background(), testProfiles().Spec("server_profile"), types.Record{
		"name":               "web-1",
		"serverHardwareName": "hw-a",
	})
	require.NoError(t, err)
	assert.Equal(t, types.MsgCreated, res.Msg)
	assert.Equal(t, hardwareA, res.Facts["server_profile"].(types.Record)["serverHardwareUri"])
	for _, c := range api.Calls() {
		assert.NotEqual(t, targets, c.URI)
	}
}

func TestServerProfileFromTemplate(t *testing.T) {
	api := fake.New()
	tpl := api.Add(client.ServerProfileTemplates, types.Record{"name": "tpl"})
	api.Handle(http.MethodGet, tpl["uri"].(string)+"/new-profile", func(body interface{}) (types.Record, error) {
		return types.Record{
			"type":                     "ServerProfileV12",
			"serverProfileTemplateUri": tpl["uri"],
			"boot":                     types.Record{"manageBoot": true, "order": types.List{"HardDisk"}},
			"connectionSettings": types.Record{"connections": types.List{
				types.Record{"id": 1, "name": "c1", "portId": "Flb 1:1-a"},
			}},
		}, nil
	})

	res, err := New(api).Present(context.Background(), testProfiles().Spec("server_profile"), types.Record{
		"name":                      "web-1",
		"serverProfileTemplateName": "tpl",
		"serverHardwareUri":         hardwareA,
		"connectionSettings": types.Record{"connections": types.List{
			types.Record{"id": 1, "name": "c1-renamed", "portId": "Auto"},
		}},
	})
	require.NoError(t, err)

	created := res.Facts["server_profile"].(types.Record)
	assert.Equal(t, "web-1", created["name"])
	assert.Equal(t, "ServerProfileV12", created["type"])
	assert.Equal(t, true, created["boot"].(types.Record)["manageBoot"])
	conns := created["connectionSettings"].(types.Record)["connections"].(types.List)
	require.Len(t, conns, 1)
	assert.Equal(t, "c1-renamed", conns[0].(types.Record)["name"])
	assert.Equal(t, "Flb 1:1-a", conns[0].(types.Record)["portId"])
}

func TestServerProfileUpdatePowerCycle(t *testing.T) {
	api := fake.New()
	prof := api.Add(client.ServerProfiles, types.Record{
		"name":              "web-1",
		"description":       "old",
		"serverHardwareUri": hardwareA,
	})
	uri := prof["uri"].(string)
	acceptPower(api, hardwareA)
	api.FailNext(http.MethodPut, uri, client.NewTaskError("InvalidServerState",
		"The BIOS settings cannot be changed while the server hardware is powered on."))

	res, err := New(api).Present(context.Background(), testProfiles().Spec("server_profile"), types.Record{
		"name":        "web-1",
		"description": "new",
	})
	require.NoError(t, err)

	assert.Equal(t, types.MsgUpdated, res.Msg)
	assert.Equal(t, "new", api.Get(uri)["description"])
	assert.Equal(t, []string{
		"PUT " + uri,
		"PUT " + hardwareA + "/powerState Off/PressAndHold",
		"PUT " + uri,
		"PUT " + hardwareA + "/powerState On/MomentaryPress",
	}, mutationSummary(api))
}

func TestServerProfileUpdateOtherErrorSurfaces(t *testing.T) {
	api := fake.New()
	prof := api.Add(client.ServerProfiles, types.Record{"name": "web-1", "description": "old", "serverHardwareUri": hardwareA})
	api.FailNext(http.MethodPut, prof["uri"].(string), client.NewTaskError("InvalidName", "bad name"))

	_, err := New(api).Present(context.Background(), testProfiles().Spec("server_profile"), types.Record{"name": "web-1", "description": "new"})
	require.Error(t, err)
	assert.True(t, client.IsTaskError(err, "InvalidName"))
	assert.Len(t, api.Mutations(), 1)
}

func TestServerProfileAbsentPowersOff(t *testing.T) {
	api := fake.New()
	api.Add(client.ServerHardware, types.Record{"name": "hw-a", "uri": hardwareA, "powerState": "On"})
	prof := api.Add(client.ServerProfiles, types.Record{"name": "web-1", "serverHardwareUri": hardwareA})
	acceptPower(api, hardwareA)

	res, err := New(api).Absent(context.Background(), testProfiles().Spec("server_profile"), types.Record{"name": "web-1"})
	require.NoError(t, err)

	assert.Equal(t, types.MsgDeleted, res.Msg)
	assert.Equal(t, []string{
		"PUT " + hardwareA + "/powerState Off/PressAndHold",
		"DELETE " + prof["uri"].(string),
	}, mutationSummary(api))
}

func TestServerProfileCompliant(t *testing.T) {
	newProfile := func(api *fake.API, compliance string) string {
		prof := api.Add(client.ServerProfiles, types.Record{
			"name":                     "web-1",
			"serverProfileTemplateUri": "/rest/server-profile-templates/t1",
			"templateCompliance":       compliance,
			"serverHardwareUri":        hardwareA,
		})
		return prof["uri"].(string)
	}
	preview := func(api *fake.API, uri string, online bool) {
		api.Handle(http.MethodGet, uri+"/compliance-preview", func(body interface{}) (types.Record, error) {
			return types.Record{"isOnlineUpdate": online}, nil
		})
	}

	t.Run("offline update power cycles", func(t *testing.T) {
		api := fake.New()
		uri := newProfile(api, "NonCompliant")
		preview(api, uri, false)
		acceptPower(api, hardwareA)

		p := testProfiles()
		res, err := p.Compliant(context.Background(), New(api), p.Spec("server_profile"), types.Record{"name": "web-1"})
		require.NoError(t, err)

		assert.True(t, res.Changed)
		assert.Equal(t, types.MsgRemediatedCompliance, res.Msg)
		assert.Equal(t, "Compliant", api.Get(uri)["templateCompliance"])
		assert.Equal(t, []string{
			"PUT " + hardwareA + "/powerState Off/PressAndHold",
			"PATCH " + uri,
			"PUT " + hardwareA + "/powerState On/MomentaryPress",
		}, mutationSummary(api))
	})

	t.Run("online update patches only", func(t *testing.T) {
		api := fake.New()
		uri := newProfile(api, "NonCompliant")
		preview(api, uri, true)

		p := testProfiles()
		res, err := p.Compliant(context.Background(), New(api), p.Spec("server_profile"), types.Record{"name": "web-1"})
		require.NoError(t, err)
		assert.Equal(t, types.MsgRemediatedCompliance, res.Msg)
		assert.Equal(t, []string{"PATCH " + uri}, mutationSummary(api))
	})

	t.Run("already compliant", func(t *testing.T) {
		api := fake.New()
		newProfile(api, "Compliant")

		p := testProfiles()
		res, err := p.Compliant(context.Background(), New(api), p.Spec("server_profile"), types.Record{"name": "web-1"})
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, types.MsgAlreadyCompliant, res.Msg)
		assert.Empty(t, api.Mutations())
	})

	t.Run("missing profile", func(t *testing.T) {
		api := fake.New()
		p := testProfiles()
		_, err := p.Compliant(context.Background(), New(api), p.Spec("server_profile"), types.Record{"name": "web-1"})
		require.Error(t, err)
		assert.Equal(t, "Server Profile not found: web-1", err.Error())
	})
}

func TestMergeProfileKeepsMACCompanions(t *testing.T) {
	api := fake.New()
	plan := api.Add(client.OSDeploymentPlans, types.Record{
		"name": "RHEL 7",
		"additionalParameters": types.List{
			types.Record{"name": "Nic1", "caType": "nic"},
			types.Record{"name": "HostName", "caType": "string"},
		},
	})

	observed := types.Record{
		"name": "web-1",
		"osDeploymentSettings": types.Record{
			"osDeploymentPlanUri": plan["uri"],
			"osCustomAttributes": types.List{
				types.Record{"name": "Nic1", "value": "dhcp"},
				types.Record{"name": "Nic1.mac", "value": "AA:BB:CC:DD:EE:FF"},
				types.Record{"name": "HostName", "value": "web-1"},
			},
		},
	}
	desired := types.Record{
		"osDeploymentSettings": types.Record{
			"osDeploymentPlanUri": plan["uri"],
			"osCustomAttributes":  types.List{types.Record{"name": "Nic1", "value": "static"}},
		},
	}

	fn, err := MergeProfile(context.Background(), api, desired)
	require.NoError(t, err)
	merged, err := fn(observed, desired)
	require.NoError(t, err)

	attrs := merged["osDeploymentSettings"].(types.Record)["osCustomAttributes"].(types.List)
	assert.Equal(t, types.List{
		types.Record{"name": "Nic1", "value": "static"},
		types.Record{"name": "Nic1.mac", "value": "AA:BB:CC:DD:EE:FF"},
	}, attrs)
}
