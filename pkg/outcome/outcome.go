package outcome

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/cuemby/ovconverge/pkg/types"
)

// Result is the record reported for one task: an Outcome when it converged
// or a Failure when it did not.
type Result struct {
	types.Outcome
	Failure *types.Failure
}

// New shapes a converged task. The resource is echoed under key in facts.
func New(changed bool, msg types.Message, key string, resource types.Record) Result {
	facts := types.Record{}
	if key != "" {
		var fact interface{}
		if resource != nil {
			fact = types.DeepCopy(resource)
		}
		facts[key] = fact
	}
	return Result{Outcome: types.Outcome{Changed: changed, Msg: msg, Facts: facts}}
}

// Changed shapes a task that modified the controller
func Changed(msg types.Message, key string, resource types.Record) Result {
	return New(true, msg, key, resource)
}

// Unchanged shapes a task that found the resource already converged
func Unchanged(msg types.Message, key string, resource types.Record) Result {
	return New(false, msg, key, resource)
}

// WithFacts adds extra facts next to the resource
func (r Result) WithFacts(extra types.Record) Result {
	if r.Facts == nil {
		r.Facts = types.Record{}
	}
	for k, v := range extra {
		r.Facts[k] = types.CopyValue(v)
	}
	return r
}

// Fail shapes a task that failed. The exception carries the error chain
// and the stack captured where the error was created.
func Fail(err error) Result {
	if err == nil {
		err = errors.New("task failed without an error")
	}
	return Result{Failure: &types.Failure{
		Failed:    true,
		Msg:       err.Error(),
		Exception: fmt.Sprintf("%+v", err),
	}}
}

// Failed reports whether the task failed
func (r Result) Failed() bool {
	return r.Failure != nil
}

// Message returns the outcome message, or the error text of a failure
func (r Result) Message() string {
	if r.Failure != nil {
		return r.Failure.Msg
	}
	return string(r.Msg)
}

// MarshalJSON emits {changed, msg, facts} or {failed, msg, exception}
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	out := r.Outcome
	if out.Facts == nil {
		out.Facts = types.Record{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either shape
func (r *Result) UnmarshalJSON(data []byte) error {
	var probe struct {
		Failed bool `json:"failed"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Failed {
		var f types.Failure
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*r = Result{Failure: &f}
		return nil
	}
	var o types.Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	*r = Result{Outcome: o}
	return nil
}
