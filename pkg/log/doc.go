/*
Package log provides structured logging for ovconverge using zerolog.

A single global Logger is configured once by Init from the command line
flags. Packages derive child loggers that carry their context:

	logger := log.WithComponent("reconciler")
	taskLogger := log.WithTask("oneview_server_profile", "web-01 present")
	resourceLogger := log.WithResource(taskLogger, "/rest/server-profiles/1")
	resourceLogger.Debug().Msg("loaded")

# Output

Console output (default) is human readable and written to stderr, leaving
stdout for the JSON result records printed by the exec and run commands.
JSON output (--log-json) suits log shippers:

	{"level":"info","module":"oneview_ethernet_network","task":"net-A","state":"present","changed":false,"msg":"ALREADY_PRESENT","message":"Task finished"}

# Levels

debug logs every reconciler transition, each controller request and the
observed/merged drift. info logs one line per task outcome. warn and error
cover retries and failures.
*/
package log
