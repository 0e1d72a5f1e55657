package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ovconverge/pkg/config"
	"github.com/cuemby/ovconverge/pkg/types"
)

func testConfig(url string) *config.Controller {
	return &config.Controller{
		IP:               url,
		Credentials:      config.Credentials{UserName: "admin", Password: "secret"},
		APIVersion:       800,
		Timeout:          5 * time.Second,
		TaskPollInterval: time.Millisecond,
		TaskTimeout:      5 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newServer returns a controller that accepts logins and delegates the rest
func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/login-sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"errorCode": "AUTHN_AUTH_DIR_FAIL", "message": "Invalid user name or password."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessionID": "token-1"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.Header.Get("Auth"))
		assert.Equal(t, "800", r.Header.Get("X-API-Version"))
		handler(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginFailure(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg := testConfig(srv.URL)
	cfg.Credentials.Password = "wrong"

	_, err := NewClient(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, IsTaskError(err, "AUTHN_AUTH_DIR_FAIL"))
}

func TestSessionIDSkipsLogin(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"name": "net-A", "uri": r.URL.Path})
	})
	cfg := testConfig(srv.URL)
	cfg.Credentials = config.Credentials{}
	cfg.SessionID = "token-1"

	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	rec, err := c.Collection(EthernetNetworks).GetByURI(context.Background(), "/rest/ethernet-networks/1")
	require.NoError(t, err)
	assert.Equal(t, "net-A", rec["name"])
}

func TestGetByNameFiltersAndPages(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("start") {
		case "":
			assert.Equal(t, `"name='net-A'"`, r.URL.Query().Get("filter"))
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"members":     []interface{}{map[string]interface{}{"name": "NET-a", "uri": "/rest/ethernet-networks/0"}},
				"nextPageUri": "/rest/ethernet-networks?start=1",
			})
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"members": []interface{}{map[string]interface{}{"name": "net-A", "uri": "/rest/ethernet-networks/1", "vlanId": 201}},
			})
		}
	})

	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)
	defer c.Close()

	rec, err := c.Collection(EthernetNetworks).GetByName(context.Background(), "net-A")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "/rest/ethernet-networks/1", rec["uri"])
	assert.Equal(t, float64(201), rec["vlanId"])
}

func TestGetByURINotFound(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errorCode": "RESOURCE_NOT_FOUND", "message": "not found"})
	})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	rec, err := c.Collection(Scopes).GetByURI(context.Background(), "/rest/scopes/missing")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCreateAwaitsTask(t *testing.T) {
	var polls int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/rest/fc-networks":
			w.Header().Set("Location", "/rest/tasks/1")
			writeJSON(w, http.StatusAccepted, map[string]interface{}{"category": "tasks", "uri": "/rest/tasks/1"})
		case r.URL.Path == "/rest/tasks/1":
			state := "Running"
			if atomic.AddInt32(&polls, 1) > 2 {
				state = "Completed"
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"category":           "tasks",
				"taskState":          state,
				"associatedResource": map[string]interface{}{"resourceUri": "/rest/fc-networks/7"},
			})
		case r.URL.Path == "/rest/fc-networks/7":
			writeJSON(w, http.StatusOK, map[string]interface{}{"name": "fc-a", "uri": "/rest/fc-networks/7"})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL)
		}
	})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	rec, err := c.Collection(FCNetworks).Create(context.Background(), types.Record{"name": "fc-a"})
	require.NoError(t, err)
	assert.Equal(t, "/rest/fc-networks/7", rec["uri"])
	assert.EqualValues(t, 3, atomic.LoadInt32(&polls))
}

func TestMutationNotResentOnServerError(t *testing.T) {
	var posts, gets int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			atomic.AddInt32(&posts, 1)
		case http.MethodGet:
			if atomic.AddInt32(&gets, 1) == 1 {
				break
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"name": "fc-a", "uri": "/rest/fc-networks/7"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"errorCode": "INTERNAL_ERROR", "message": "boom"})
	})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Collection(FCNetworks).Create(context.Background(), types.Record{"name": "fc-a"})
	require.Error(t, err)
	assert.True(t, IsTaskError(err, "INTERNAL_ERROR"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&posts))

	rec, err := c.Collection(FCNetworks).GetByURI(context.Background(), "/rest/fc-networks/7")
	require.NoError(t, err)
	assert.Equal(t, "fc-a", rec["name"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&gets))
}

func TestRetryPolicy(t *testing.T) {
	respond := func(method string, status int) *http.Response {
		req, _ := http.NewRequest(method, "http://controller/rest/x", nil)
		return &http.Response{StatusCode: status, Request: req}
	}
	tests := []struct {
		name   string
		method string
		status int
		retry  bool
	}{
		{"get 500", http.MethodGet, http.StatusInternalServerError, true},
		{"post 500", http.MethodPost, http.StatusInternalServerError, false},
		{"put 502", http.MethodPut, http.StatusBadGateway, false},
		{"post 503", http.MethodPost, http.StatusServiceUnavailable, true},
		{"patch 429", http.MethodPatch, http.StatusTooManyRequests, true},
		{"delete 200", http.MethodDelete, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retry, err := retryPolicy(context.Background(), respond(tt.method, tt.status), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.retry, retry)
		})
	}
}

func TestTaskErrorSurfacesCode(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/server-profiles":
			w.Header().Set("Location", "/rest/tasks/2")
			w.WriteHeader(http.StatusAccepted)
		case "/rest/tasks/2":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"taskState": "Error",
				"taskErrors": []interface{}{map[string]interface{}{
					"errorCode": "AssignProfileToDeviceBayError",
					"message":   "The device bay is already in use.",
				}},
			})
		}
	})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Collection(ServerProfiles).Create(context.Background(), types.Record{"name": "web-01"})
	require.Error(t, err)
	assert.True(t, IsTaskError(err, "AssignProfileToDeviceBayError"))
	te, ok := AsTaskError(err)
	require.True(t, ok)
	assert.Equal(t, "The device bay is already in use.", te.Message)
}

func TestETagValidation(t *testing.T) {
	var ifMatch atomic.Value
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		ifMatch.Store(r.Header.Get("If-Match"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"uri": r.URL.Path})
	})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	body := types.Record{"uri": "/rest/scopes/1", "name": "s"}
	_, err = c.Collection(Scopes).Update(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "", ifMatch.Load())

	c.SetETagValidation(false)
	_, err = c.Collection(Scopes).Update(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "*", ifMatch.Load())
}

func TestPatchBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var body []map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []map[string]interface{}{{"op": "replace", "path": "/templateCompliance", "value": "Compliant"}}, body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"uri": r.URL.Path, "templateCompliance": "Compliant"})
	})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	rec, err := c.Collection(ServerProfiles).Patch(context.Background(), "/rest/server-profiles/1", "replace", "/templateCompliance", "Compliant")
	require.NoError(t, err)
	assert.Equal(t, "Compliant", rec["templateCompliance"])
}

func TestStreamerRequiresHost(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Collection(GoldenImages).GetByName(context.Background(), "img")
	require.Error(t, err)
	assert.True(t, IsValueError(err))
}

func TestDoHonoursCancellation(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	c, err := NewClient(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Do(ctx, http.MethodGet, "/rest/scopes", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindForURI(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"/rest/server-profiles/1", "server-profiles"},
		{"/rest/server-profile-templates/1/new-profile", "server-profile-templates"},
		{"/rest/fc-sans/device-managers/abc", "san-managers"},
		{"/rest/golden-images?filter=x", "golden-images"},
		{"/rest/unknown/1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			kind, ok := KindForURI(tt.uri)
			assert.Equal(t, tt.expected != "", ok)
			assert.Equal(t, tt.expected, kind.Name)
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsResourceNotFound(NewResourceNotFound("Scope not found: %s", "x")))
	assert.True(t, IsValueError(NewValueError("bad")))
	assert.True(t, IsTaskError(NewTaskError("X", "y"), ""))
	assert.False(t, IsTaskError(NewTaskError("X", "y"), "Z"))
	assert.Equal(t, "X: y", NewTaskError("X", "y").Error())
}
