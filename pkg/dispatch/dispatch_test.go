package dispatch

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/client/fake"
	"github.com/cuemby/ovconverge/pkg/config"
	"github.com/cuemby/ovconverge/pkg/metrics"
	"github.com/cuemby/ovconverge/pkg/modules"
	"github.com/cuemby/ovconverge/pkg/storage"
	"github.com/cuemby/ovconverge/pkg/types"
)

const networkModule = "oneview_ethernet_network"

type closingAPI struct {
	*fake.API
	closed int
}

func (c *closingAPI) Close() error {
	c.closed++
	return nil
}

type harness struct {
	api      *closingAPI
	connects []string
	journal  *storage.BoltStore
	d        *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	journal, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	h := &harness{api: &closingAPI{API: fake.New()}, journal: journal}
	h.d = New(
		WithJournal(journal),
		WithConfigLoader(func(path string) (*config.Controller, error) {
			if path == "missing.json" {
				return nil, errors.New("config file not found")
			}
			return &config.Controller{IP: "10.0.0.1", SessionID: "s"}, nil
		}),
		WithConnector(func(ctx context.Context, cfg *config.Controller) (client.API, error) {
			h.connects = append(h.connects, cfg.IP)
			return h.api, nil
		}),
	)
	return h
}

func networkTask(data types.Record) Task {
	return Task{
		Name:   "create network",
		Module: networkModule,
		Params: types.Params{State: types.StatePresent, Data: data},
	}
}

func TestRunConverges(t *testing.T) {
	h := newHarness(t)
	before := testutil.ToFloat64(metrics.TasksTotal.WithLabelValues(networkModule, string(types.MsgCreated)))

	res := h.d.Run(context.Background(), networkTask(types.Record{"name": "net-A", "vlanId": 201}))
	require.False(t, res.Failed(), res.Message())
	assert.Equal(t, types.MsgCreated, res.Msg)
	assert.True(t, res.Changed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TasksTotal.WithLabelValues(networkModule, string(types.MsgCreated))))

	res = h.d.Run(context.Background(), networkTask(types.Record{"name": "net-A", "vlanId": "201"}))
	assert.Equal(t, types.MsgAlreadyPresent, res.Msg)

	entries, err := h.journal.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ALREADY_PRESENT", entries[0].Msg)
	assert.Equal(t, "CREATED", entries[1].Msg)
	assert.Equal(t, "create network", entries[1].Name)
	assert.True(t, entries[1].Changed)
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name     string
		task     Task
		contains string
	}{
		{
			name:     "unknown module",
			task:     Task{Module: "oneview_nothing", Params: types.Params{State: types.StatePresent, Data: types.Record{}}},
			contains: `unknown module "oneview_nothing"`,
		},
		{
			name:     "missing data",
			task:     Task{Module: networkModule, Params: types.Params{State: types.StatePresent}},
			contains: "data",
		},
		{
			name:     "state outside the module states",
			task:     Task{Module: networkModule, Params: types.Params{State: types.StateCompliant, Data: types.Record{"name": "x"}}},
			contains: "state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			before := testutil.ToFloat64(metrics.TaskFailures.WithLabelValues(tt.task.Module))

			res := h.d.Run(context.Background(), tt.task)
			require.True(t, res.Failed())
			assert.Contains(t, res.Message(), tt.contains)
			assert.Empty(t, h.connects)
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.TaskFailures.WithLabelValues(tt.task.Module)))

			entries, err := h.journal.List(0)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.True(t, entries[0].Failed)
			assert.NotEmpty(t, entries[0].Error)
		})
	}
}

func TestRunFailureShape(t *testing.T) {
	h := newHarness(t)
	task := networkTask(types.Record{"name": "net-A"})
	task.Params.Config = "missing.json"

	res := h.d.Run(context.Background(), task)
	require.True(t, res.Failed())

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["failed"])
	assert.Equal(t, "config file not found", decoded["msg"])
	assert.Contains(t, decoded["exception"], "config file not found")
}

func TestRunETagValidation(t *testing.T) {
	h := newHarness(t)
	disabled := false
	task := networkTask(types.Record{"name": "net-A"})
	task.Params.ValidateETag = &disabled

	h.d.Run(context.Background(), task)
	assert.False(t, h.api.ETagValidation())

	h.d.Run(context.Background(), networkTask(types.Record{"name": "net-A"}))
	assert.True(t, h.api.ETagValidation())
}

func TestClientsSharedPerConfig(t *testing.T) {
	h := newHarness(t)

	h.d.Run(context.Background(), networkTask(types.Record{"name": "a"}))
	h.d.Run(context.Background(), networkTask(types.Record{"name": "b"}))
	assert.Len(t, h.connects, 1)

	other := networkTask(types.Record{"name": "c"})
	other.Params.Config = "other.json"
	h.d.Run(context.Background(), other)
	assert.Len(t, h.connects, 2)

	require.NoError(t, h.d.Close())
	assert.Equal(t, 2, h.api.closed)

	h.d.Run(context.Background(), networkTask(types.Record{"name": "a"}))
	assert.Len(t, h.connects, 3)
}

func TestSchema(t *testing.T) {
	m, ok := modules.Get("oneview_server_hardware")
	require.True(t, ok)

	schema := Schema(m)
	state := schema["properties"].(types.Record)["state"].(types.Record)
	assert.Equal(t, types.List{
		"present", "absent", "power_state_set", "refreshed", "uid_state_on", "uid_state_off",
	}, state["enum"])

	valid := types.Params{State: types.StateUIDStateOn, Data: types.Record{"name": "hw"}, Params: types.Record{"x": 1}}
	assert.NoError(t, Validate(m, valid))

	err := Validate(m, types.Params{State: "rebooted", Data: types.Record{}})
	require.Error(t, err)
	assert.True(t, client.IsValueError(err))
}
