/*
Package resolve rewrites the human names in a desired record into the URIs
the controller expects, before the record is merged or compared.

A Rule names a field pair and the collections to search:

	resolve.Rule{Name: "enclosureGroupName", URI: "enclosureGroupUri",
		Kinds: []client.Kind{client.EnclosureGroups}}

Rules may be scoped to a nested record or fanned out over a sequence
(Scope: "connectionSettings.connections"), may map lists of names (Multi),
and may probe several kinds in order. Network references in connections
try fc-networks, fcoe-networks, network-sets and ethernet-networks, and the
first kind holding the name wins.

Name fields are removed once handled. A null name leaves the URI field
alone, a value already shaped like a URI is copied as is, and a URI field
holding a plain name is looked up. The first name that cannot be found
fails with client.ResourceNotFound ("Enclosure Group not found: EG-1")
before anything is changed on the controller.
*/
package resolve
