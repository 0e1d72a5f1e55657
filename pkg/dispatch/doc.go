/*
Package dispatch runs module tasks and shapes their results.

A Task names a module and carries its parameter record. The dispatcher:

 1. looks the module up in the registry
 2. validates the parameters against the module's JSON schema
 3. opens (or reuses) the controller facade for the task's config
 4. applies validate_etag to the facade
 5. runs the module and converts any error into a failure record
 6. records metrics and a journal entry

Run never returns an error. A task that cannot converge yields
{failed: true, msg, exception}, where exception carries the stack captured
where the error was created.

# Schemas

Every module gets a generated schema: state is an enum of the module states,
data is a required object, config is a string and validate_etag a boolean.
Unknown top-level keys are rejected, so a misspelt parameter fails the task
before the controller is contacted.

# Sessions

Facades are cached by config path for the dispatcher's lifetime. Close logs
out of every session.
*/
package dispatch
