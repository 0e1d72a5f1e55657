/*
Package client provides the controller facade used by the reconciliation
engine: one Collection per resource kind plus raw requests for the verbs that
do not fit the collection shape.

# Architecture

	┌──────────────── ENGINE (reconciler, resolve, modules) ────────────────┐
	│                                                                        │
	│  api.Collection(client.ServerProfiles).GetByName(ctx, "web-01")       │
	│  client.UpdatePowerState(ctx, api, hardwareURI, client.PowerOffRequest())
	│                                                                        │
	└──────────────────┬─────────────────────────────────────────────────────┘
	                   │ client.API
	┌──────────────────▼──── pkg/client ─────────────────────────────────────┐
	│  Client                                                                 │
	│   - session login (POST /rest/login-sessions) or configured session id │
	│   - Auth and X-API-Version headers, If-Match: * when ETags are off     │
	│   - go-retryablehttp transport, transient failures retried             │
	│   - 202 Accepted: task polled until terminal, resource re-read         │
	│   - image streamer kinds routed to the streamer host                   │
	└──────────────────┬─────────────────────────────────────────────────────┘
	                   │ HTTPS
	                   ▼
	        Controller / Image Streamer

# Errors

Failures surface as one of three types, each wrapped with a stack trace:

  - TaskError{Code, Message}: a task ended in Error, or a non-2xx response.
    Code is the controller errorCode, e.g. AssignProfileToDeviceBayError.
  - ValueError: the task input cannot be sent (missing uri, no streamer host).
  - ResourceNotFound: a name did not resolve. Raised by package resolve.

Use IsTaskError, IsValueError and IsResourceNotFound rather than type
assertions, since errors are wrapped.

# Testing

Package fake implements API in memory with a call log, canned verb
responses and queued failures:

	api := fake.New()
	api.Add(client.EthernetNetworks, types.Record{"name": "net-A", "vlanId": 201})
	api.FailNext(http.MethodPost, client.ServerProfiles.Path,
		client.NewTaskError("AssignProfileToDeviceBayError", "bay in use"))
*/
package client
