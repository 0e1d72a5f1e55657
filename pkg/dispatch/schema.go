package dispatch

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/modules"
	"github.com/cuemby/ovconverge/pkg/types"
)

var (
	schemaMu sync.Mutex
	schemas  = make(map[string]*gojsonschema.Schema)
)

// Schema returns the JSON schema of the parameter record a module accepts
func Schema(m *modules.Module) types.Record {
	states := make(types.List, 0, len(m.States()))
	for _, s := range m.States() {
		states = append(states, string(s))
	}
	return types.Record{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title":   m.Name,
		"type":    "object",
		"properties": types.Record{
			"config":        types.Record{"type": "string"},
			"state":         types.Record{"type": "string", "enum": states},
			"data":          types.Record{"type": "object"},
			"options":       types.Record{"type": "object"},
			"params":        types.Record{"type": "object"},
			"validate_etag": types.Record{"type": "boolean"},
		},
		"required":             types.List{"state", "data"},
		"additionalProperties": false,
	}
}

func compiled(m *modules.Module) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemas[m.Name]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(Schema(m)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile schema of %s", m.Name)
	}
	schemas[m.Name] = s
	return s, nil
}

// Validate checks params against the module schema. Every violation is
// reported in one ValueError.
func Validate(m *modules.Module, params types.Params) error {
	schema, err := compiled(m)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "failed to encode task params")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.Wrap(err, "failed to validate task params")
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return client.NewValueError("invalid parameters for %s: %s", m.Name, strings.Join(problems, "; "))
}
