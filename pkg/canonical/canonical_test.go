package canonical

import (
	"encoding/json"
	"testing"

	"github.com/cuemby/ovconverge/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestIsAbsent(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		absent bool
	}{
		{name: "nil", value: nil, absent: true},
		{name: "empty string", value: "", absent: true},
		{name: "false", value: false, absent: true},
		{name: "empty list", value: types.List{}, absent: true},
		{name: "empty record", value: types.Record{}, absent: true},
		{name: "typed nil record", value: types.Record(nil), absent: true},
		{name: "typed nil list", value: types.List(nil), absent: true},
		{name: "true", value: true, absent: false},
		{name: "zero", value: 0, absent: false},
		{name: "string", value: "x", absent: false},
		{name: "list", value: types.List{nil}, absent: false},
		{name: "record", value: types.Record{"a": nil}, absent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.absent, IsAbsent(tt.value))
		})
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		same bool
	}{
		{name: "int and float", a: 10, b: 10.0, same: true},
		{name: "numeric string and int", a: "10", b: 10, same: true},
		{name: "numeric string and float", a: "10.0", b: 10.0, same: true},
		{name: "json number", a: json.Number("201"), b: "201", same: true},
		{name: "fractional floats", a: 1.5, b: "1.5", same: true},
		{name: "different numbers", a: 10, b: 11, same: false},
		{name: "null and empty string", a: nil, b: "", same: true},
		{name: "false and null", a: false, b: nil, same: true},
		{name: "true and false", a: true, b: false, same: false},
		{name: "true and null", a: true, b: nil, same: false},
		{name: "plain strings", a: "Auto", b: "Auto", same: true},
		{name: "case matters", a: "auto", b: "Auto", same: false},
		{name: "NaN stays a string", a: "NaN", b: "NaN", same: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, Scalar(tt.a), Scalar(tt.b))
			} else {
				assert.NotEqual(t, Scalar(tt.a), Scalar(tt.b))
			}
		})
	}
}

func TestScalarIntegerFloat(t *testing.T) {
	assert.Equal(t, "10", Scalar(10.0))
	assert.Equal(t, "-3", Scalar(float32(-3)))
	assert.Equal(t, "0.25", Scalar(0.25))
}

func TestStringIsOrderAndEncodingInsensitive(t *testing.T) {
	a := types.Record{
		"id":    1,
		"name":  "c1",
		"ports": types.List{"b", "a"},
		"boot":  types.Record{"priority": "Primary", "chap": nil},
	}
	b := types.Record{
		"ports": types.List{"a", "b"},
		"name":  "c1",
		"boot":  types.Record{"priority": "Primary"},
		"id":    "1",
		"extra": "",
	}

	assert.Equal(t, String(a), String(b))
	assert.NotEqual(t, String(a), String(types.Record{"id": 2}))
}

func TestStringEmptyRecordMatchesAbsent(t *testing.T) {
	assert.Equal(t, String(nil), String(types.Record{"a": nil}))
	assert.Equal(t, String(false), String(types.List{}))
}
