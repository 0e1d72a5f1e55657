/*
Package modules registers the single-purpose automation modules.

A Module binds a controller resource kind to the states a task may ask
for. Modules with Lifecycle set converge present and absent through the
reconciler; Verbs add domain states such as compliant or power_state_set.
Most modules are a handful of fields; the few that need more set reconciler
hooks through Customize.

	m, ok := modules.Get("oneview_ethernet_network")
	if !ok {
		return errors.New("unknown module")
	}
	res, err := m.Run(ctx, api, types.Params{
		State: types.StatePresent,
		Data:  types.Record{"name": "net-A", "vlanId": 201},
	})

Modules register themselves from init, grouped by area: networks,
interconnects, enclosures, servers, storage, scopes and image streamer
artifacts.
*/
package modules
