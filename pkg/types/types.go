package types

import (
	"sort"
	"strings"
)

// Record is a controller resource or a user-supplied desired state: a tree
// of nested records, sequences and scalars as decoded from JSON or YAML.
type Record = map[string]interface{}

// List is an ordered sequence inside a Record
type List = []interface{}

// State is the desired lifecycle state requested by a task
type State string

const (
	StatePresent                 State = "present"
	StateAbsent                  State = "absent"
	StateCompliant               State = "compliant"
	StateRefreshed               State = "refreshed"
	StateReconfigured            State = "reconfigured"
	StatePowerStateSet           State = "power_state_set"
	StateUIDStateOn              State = "uid_state_on"
	StateUIDStateOff             State = "uid_state_off"
	StateFirmwareUpdated         State = "firmware_updated"
	StateFirmwareInstalled       State = "firmware_installed"
	StateConfigurationUpdated    State = "configuration_updated"
	StateEthernetSettingsUpdated State = "ethernet_settings_updated"
	StateDriveEnclosureReplaced  State = "drive_enclosure_replaced"
	StateRepaired                State = "repaired"
	StateSnapshotCreated         State = "snapshot_created"
	StateSnapshotDeleted         State = "snapshot_deleted"
	StateDefaultBandwidthReset   State = "default_bandwidth_reset"
	StateConnectionInfoSet       State = "connection_information_set"
	StateResourceAssignments     State = "resource_assignments_updated"
)

// Message is the closed set of outcome messages reported to the dispatcher
type Message string

const (
	MsgCreated        Message = "CREATED"
	MsgUpdated        Message = "UPDATED"
	MsgDeleted        Message = "DELETED"
	MsgAlreadyPresent Message = "ALREADY_PRESENT"
	MsgAlreadyAbsent  Message = "ALREADY_ABSENT"

	MsgRemediatedCompliance  Message = "REMEDIATED_COMPLIANCE"
	MsgAlreadyCompliant      Message = "ALREADY_COMPLIANT"
	MsgPowerStateUpdated     Message = "POWER_STATE_UPDATED"
	MsgAlreadyInPowerState   Message = "ALREADY_IN_POWER_STATE"
	MsgRefreshed             Message = "REFRESHED"
	MsgReconfigured          Message = "RECONFIGURED"
	MsgUIDStateChanged       Message = "UID_STATE_CHANGED"
	MsgAlreadyInUIDState     Message = "ALREADY_IN_UID_STATE"
	MsgSettingsUpdated       Message = "SETTINGS_UPDATED"
	MsgConfigurationUpdated  Message = "CONFIGURATION_UPDATED"
	MsgFirmwareInstalled     Message = "FIRMWARE_INSTALLED"
	MsgDriveEnclosureReplace Message = "DRIVE_ENCLOSURE_REPLACED"
	MsgRepaired              Message = "REPAIRED"
	MsgSnapshotCreated       Message = "SNAPSHOT_CREATED"
	MsgSnapshotPresent       Message = "SNAPSHOT_ALREADY_PRESENT"
	MsgSnapshotDeleted       Message = "SNAPSHOT_DELETED"
	MsgSnapshotAbsent        Message = "SNAPSHOT_ALREADY_ABSENT"
	MsgBandwidthReset        Message = "BANDWIDTH_RESET"
	MsgConnectionInfoSet     Message = "CONNECTION_INFO_SET"
	MsgResourceAssignments   Message = "RESOURCE_ASSIGNMENTS_UPDATED"
)

// Outcome is the uniform result of a converged task
type Outcome struct {
	Changed bool    `json:"changed"`
	Msg     Message `json:"msg"`
	Facts   Record  `json:"facts"`
}

// Failure is the result of a task that could not converge
type Failure struct {
	Failed    bool   `json:"failed"`
	Msg       string `json:"msg"`
	Exception string `json:"exception"`
}

// Params is the parameter record handed to every task
type Params struct {
	Config       string `json:"config,omitempty" yaml:"config,omitempty"`
	State        State  `json:"state" yaml:"state"`
	Data         Record `json:"data" yaml:"data"`
	Options      Record `json:"options,omitempty" yaml:"options,omitempty"`
	Params       Record `json:"params,omitempty" yaml:"params,omitempty"`
	ValidateETag *bool  `json:"validate_etag,omitempty" yaml:"validate_etag,omitempty"`
}

// ETagValidation reports whether optimistic concurrency checks stay enabled.
// Omitted means enabled.
func (p Params) ETagValidation() bool {
	return p.ValidateETag == nil || *p.ValidateETag
}

// AsRecord returns v as a Record when it is one
func AsRecord(v interface{}) (Record, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, m != nil
	case map[interface{}]interface{}:
		out := make(Record, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				continue
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// AsList returns v as a List when it is one
func AsList(v interface{}) (List, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, l != nil
	case []map[string]interface{}:
		out := make(List, len(l))
		for i, r := range l {
			out[i] = r
		}
		return out, true
	case []string:
		out := make(List, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// DeepCopy returns an independent copy of r
func DeepCopy(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CopyValue(v)
	}
	return out
}

// CopyValue deep-copies any value found inside a Record
func CopyValue(v interface{}) interface{} {
	if rec, ok := AsRecord(v); ok {
		return DeepCopy(rec)
	}
	if l, ok := AsList(v); ok {
		out := make(List, len(l))
		for i, e := range l {
			out[i] = CopyValue(e)
		}
		return out
	}
	return v
}

// String returns the string value at key, or "" when missing or not a string
func String(r Record, key string) string {
	if r == nil {
		return ""
	}
	s, _ := r[key].(string)
	return s
}

// Child returns the nested record at key
func Child(r Record, key string) (Record, bool) {
	if r == nil {
		return nil, false
	}
	return AsRecord(r[key])
}

// Lookup walks a dotted path of nested records
func Lookup(r Record, path string) (interface{}, bool) {
	cur := interface{}(r)
	for _, seg := range strings.Split(path, ".") {
		rec, ok := AsRecord(cur)
		if !ok {
			return nil, false
		}
		cur, ok = rec[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Keys returns the sorted keys of r
func Keys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
