package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/cuemby/ovconverge/pkg/config"
	"github.com/cuemby/ovconverge/pkg/log"
	"github.com/cuemby/ovconverge/pkg/metrics"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Collection is the capability set every resource kind exposes
type Collection interface {
	Kind() Kind
	// GetByName returns the member named name, nil when there is none
	GetByName(ctx context.Context, name string) (types.Record, error)
	// GetByURI returns the resource at uri, nil when the controller answers 404
	GetByURI(ctx context.Context, uri string) (types.Record, error)
	GetAll(ctx context.Context) ([]types.Record, error)
	GetBy(ctx context.Context, field, value string) ([]types.Record, error)
	Create(ctx context.Context, body types.Record) (types.Record, error)
	// Update replaces the resource addressed by body["uri"]
	Update(ctx context.Context, body types.Record) (types.Record, error)
	Delete(ctx context.Context, resource types.Record) error
	Patch(ctx context.Context, uri, op, path string, value interface{}) (types.Record, error)
}

// API is the controller facade handed to the engine
type API interface {
	Collection(kind Kind) Collection
	// Do issues a raw request for kind-specific verbs. Async tasks are
	// awaited and the affected resource is returned.
	Do(ctx context.Context, method, uri string, body interface{}) (types.Record, error)
	// SetETagValidation toggles optimistic concurrency checks on mutations
	SetETagValidation(enabled bool)
}

// Terminal task states
const (
	taskCompleted  = "Completed"
	taskWarning    = "Warning"
	taskError      = "Error"
	taskTerminated = "Terminated"
	taskKilled     = "Killed"
)

// Client is the REST implementation of API
type Client struct {
	cfg    *config.Controller
	http   *retryablehttp.Client
	logger zerolog.Logger

	mu           sync.Mutex
	token        string
	loggedIn     bool
	validateETag bool
}

// NewClient creates a client and opens a session unless cfg carries one
func NewClient(ctx context.Context, cfg *config.Controller) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewValueError("%v", err)
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	hc.CheckRetry = retryPolicy
	hc.HTTPClient.Timeout = cfg.Timeout
	if transport, ok := hc.HTTPClient.Transport.(*http.Transport); ok && cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		cfg:          cfg,
		http:         hc,
		logger:       log.WithComponent("client"),
		token:        cfg.SessionID,
		validateETag: true,
	}
	hc.Logger = leveledLogger{c.logger}

	if c.token == "" {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// retryPolicy keeps the library policy for reads. A mutation the controller
// answered may have been applied, so it is only resent on connection errors,
// 429 and 503.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil || resp == nil || resp.Request == nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead:
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true, nil
	}
	return false, nil
}

// Close ends the session opened by NewClient
func (c *Client) Close() error {
	c.mu.Lock()
	loggedIn := c.loggedIn
	c.loggedIn = false
	c.mu.Unlock()
	if !loggedIn {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _, _, err := c.request(ctx, http.MethodDelete, "/rest/login-sessions", nil)
	return err
}

// SetETagValidation toggles If-Match: * on mutations
func (c *Client) SetETagValidation(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validateETag = enabled
}

// Collection returns the facade for kind
func (c *Client) Collection(kind Kind) Collection {
	return &collection{api: c, kind: kind}
}

func (c *Client) login(ctx context.Context) error {
	body := map[string]interface{}{
		"userName":    c.cfg.Credentials.UserName,
		"password":    c.cfg.Credentials.Password,
		"loginMsgAck": true,
	}
	if c.cfg.Credentials.AuthLoginDomain != "" {
		body["authLoginDomain"] = c.cfg.Credentials.AuthLoginDomain
	}

	status, data, _, err := c.request(ctx, http.MethodPost, "/rest/login-sessions", body)
	if err != nil {
		return errors.Wrap(err, "failed to log in to controller")
	}
	if status >= 300 {
		return errors.Wrap(responseError(status, data), "failed to log in to controller")
	}

	token := gjson.GetBytes(data, "sessionID").String()
	if token == "" {
		return NewTaskError("AUTHN_FAILED", "login response carried no session id")
	}
	c.mu.Lock()
	c.token, c.loggedIn = token, true
	c.mu.Unlock()
	return nil
}

// Do issues a request and awaits its async task
func (c *Client) Do(ctx context.Context, method, uri string, body interface{}) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	status, data, header, err := c.request(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, responseError(status, data)
	}

	if status == http.StatusAccepted {
		taskURI := header.Get("Location")
		if taskURI == "" {
			taskURI = gjson.GetBytes(data, "uri").String()
		}
		if taskURI != "" {
			return c.awaitTask(ctx, method, taskURI)
		}
	}
	if gjson.GetBytes(data, "category").String() == "tasks" {
		return c.awaitTask(ctx, method, gjson.GetBytes(data, "uri").String())
	}

	return decode(data)
}

// awaitTask polls a task until it reaches a terminal state and returns the
// resource it touched, re-read from the controller.
func (c *Client) awaitTask(ctx context.Context, method, taskURI string) (types.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
	defer cancel()

	interval := c.cfg.TaskPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for {
		status, data, _, err := c.request(ctx, http.MethodGet, taskURI, nil)
		if err != nil {
			return nil, err
		}
		if status >= 300 {
			return nil, responseError(status, data)
		}

		task := gjson.ParseBytes(data)
		switch task.Get("taskState").String() {
		case taskCompleted, taskWarning:
			if method == http.MethodDelete {
				return nil, nil
			}
			resourceURI := task.Get("associatedResource.resourceUri").String()
			if resourceURI == "" {
				return decode(data)
			}
			return c.Do(ctx, http.MethodGet, resourceURI, nil)
		case taskError, taskTerminated, taskKilled:
			return nil, taskFailure(task)
		}

		c.logger.Debug().
			Str("task_uri", taskURI).
			Str("state", task.Get("taskState").String()).
			Int64("percent", task.Get("percentComplete").Int()).
			Msg("Waiting for task")

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "timed out waiting for task %s", taskURI)
		case <-time.After(interval):
		}
	}
}

// request sends one HTTP request and returns the status and raw body
func (c *Client) request(ctx context.Context, method, uri string, body interface{}) (int, []byte, http.Header, error) {
	base := c.cfg.BaseURL()
	if kind, ok := KindForURI(uri); ok && kind.Streamer {
		base = c.cfg.StreamerURL()
		if base == "" {
			return 0, nil, nil, NewValueError("image streamer ip is not configured for %s", uri)
		}
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return 0, nil, nil, errors.Wrap(err, "failed to encode request body")
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, base+uri, payload)
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Version", strconv.Itoa(c.cfg.APIVersion))

	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Auth", c.token)
	}
	if !c.validateETag && isMutation(method) {
		req.Header.Set("If-Match", "*")
	}
	c.mu.Unlock()

	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.ControllerRequestDuration, method)
	if err != nil {
		metrics.ControllerRequestsTotal.WithLabelValues(method, "error").Inc()
		return 0, nil, nil, errors.Wrapf(err, "%s %s failed", method, uri)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, errors.Wrapf(err, "failed to read response of %s %s", method, uri)
	}

	metrics.ControllerRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("method", method).
		Str("uri", uri).
		Int("status", resp.StatusCode).
		Msg("Controller request")

	return resp.StatusCode, data, resp.Header, nil
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func decode(data []byte) (types.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to decode controller response")
	}
	return rec, nil
}

// responseError turns a non-2xx body into a TaskError
func responseError(status int, data []byte) error {
	body := gjson.ParseBytes(data)
	code := body.Get("errorCode").String()
	if code == "" {
		code = "HTTP_" + strconv.Itoa(status)
	}
	msg := body.Get("message").String()
	if details := body.Get("details").String(); details != "" {
		msg = strings.TrimSpace(msg + " " + details)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errors.WithStack(&TaskError{Code: code, Message: msg, Status: status})
}

func taskFailure(task gjson.Result) error {
	first := task.Get("taskErrors.0")
	code := first.Get("errorCode").String()
	msg := first.Get("message").String()
	if msg == "" {
		msg = task.Get("taskStatus").String()
	}
	if msg == "" {
		msg = "task " + task.Get("taskState").String()
	}
	return NewTaskError(code, msg)
}

// leveledLogger routes retryablehttp logs to zerolog
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.event(l.logger.Error(), msg, kv) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.event(l.logger.Warn(), msg, kv) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.event(l.logger.Debug(), msg, kv) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.event(l.logger.Debug(), msg, kv) }

func (l leveledLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
