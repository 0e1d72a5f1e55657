// Package outcome shapes task results into the record reported to callers:
// {changed, msg, facts} on success and {failed, msg, exception} on failure.
package outcome
