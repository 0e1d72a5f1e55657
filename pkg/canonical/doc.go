// Package canonical normalises scalar values so that controller payloads and
// user input can be compared without caring about JSON number encoding or
// which flavour of "nothing" a field carries.
//
// The absent set {null, "", [], {}, false} collapses to one value. true and
// false stay distinct: a "manage*" flag set to false equals an omitted flag,
// but never equals true.
package canonical
