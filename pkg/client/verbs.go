package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cuemby/ovconverge/pkg/types"
)

// Power control requests for server hardware
const (
	PowerStateOn  = "On"
	PowerStateOff = "Off"
)

// PowerOffRequest presses and holds the power button
func PowerOffRequest() types.Record {
	return types.Record{"powerState": PowerStateOff, "powerControl": "PressAndHold"}
}

// PowerOnRequest momentarily presses the power button
func PowerOnRequest() types.Record {
	return types.Record{"powerState": PowerStateOn, "powerControl": "MomentaryPress"}
}

// UpdatePowerState changes the power state of a server hardware
func UpdatePowerState(ctx context.Context, api API, hardwareURI string, state types.Record) (types.Record, error) {
	return api.Do(ctx, http.MethodPut, hardwareURI+"/powerState", state)
}

// UpdateRefreshState asks the controller to refresh a resource
func UpdateRefreshState(ctx context.Context, api API, uri string, state types.Record) (types.Record, error) {
	return api.Do(ctx, http.MethodPut, uri+"/refreshState", state)
}

// SetUIDState switches the locator light of a server hardware
func SetUIDState(ctx context.Context, api API, hardwareURI, state string) (types.Record, error) {
	return api.Collection(ServerHardware).Patch(ctx, hardwareURI, "replace", "/uidState", state)
}

// ServerFilter narrows AvailableServers
type ServerFilter struct {
	EnclosureGroupURI     string
	ServerHardwareTypeURI string
	ProfileURI            string
}

// AvailableServers lists server hardware a profile can be assigned to.
// Each target carries serverHardwareUri and the hardware power state.
func AvailableServers(ctx context.Context, api API, filter ServerFilter) ([]types.Record, error) {
	query := url.Values{}
	if filter.EnclosureGroupURI != "" {
		query.Set("enclosureGroupUri", filter.EnclosureGroupURI)
	}
	if filter.ServerHardwareTypeURI != "" {
		query.Set("serverHardwareTypeUri", filter.ServerHardwareTypeURI)
	}
	if filter.ProfileURI != "" {
		query.Set("profileUri", filter.ProfileURI)
	}
	uri := ServerProfiles.Path + "/available-targets"
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	resp, err := api.Do(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	return Members(resp, "targets"), nil
}

// CompliancePreview describes the changes a template compliance update makes
func CompliancePreview(ctx context.Context, api API, profileURI string) (types.Record, error) {
	return api.Do(ctx, http.MethodGet, profileURI+"/compliance-preview", nil)
}

// NewProfileFromTemplate returns a server profile body derived from a template
func NewProfileFromTemplate(ctx context.Context, api API, templateURI string) (types.Record, error) {
	return api.Do(ctx, http.MethodGet, templateURI+"/new-profile", nil)
}

// UpdateCompliance brings a logical interconnect back in line with its group
func UpdateCompliance(ctx context.Context, api API, uri string) (types.Record, error) {
	return api.Do(ctx, http.MethodPut, uri+"/compliance", types.Record{})
}

// UpdateSASCompliance brings SAS logical interconnects back in line with their group
func UpdateSASCompliance(ctx context.Context, api API, uris ...string) (types.Record, error) {
	list := make(types.List, len(uris))
	for i, u := range uris {
		list[i] = u
	}
	return api.Do(ctx, http.MethodPut, SASLogicalInterconnects.Path+"/compliance", types.Record{"uris": list})
}

// DefaultConnectionTemplate returns the controller default bandwidth template
func DefaultConnectionTemplate(ctx context.Context, api API) (types.Record, error) {
	return api.Do(ctx, http.MethodGet, ConnectionTemplates.Path+"/defaultConnectionTemplate", nil)
}

// UpdateEthernetSettings replaces the ethernet settings of a logical interconnect
func UpdateEthernetSettings(ctx context.Context, api API, uri string, settings types.Record) (types.Record, error) {
	return api.Do(ctx, http.MethodPut, uri+"/ethernetSettings", settings)
}

// UpdateConfiguration reapplies the configuration of a logical interconnect
// or enclosure
func UpdateConfiguration(ctx context.Context, api API, uri string) (types.Record, error) {
	return api.Do(ctx, http.MethodPut, uri+"/configuration", nil)
}

// InstallFirmware stages or activates firmware on an interconnect
func InstallFirmware(ctx context.Context, api API, uri string, body types.Record) (types.Record, error) {
	return api.Do(ctx, http.MethodPut, uri+"/firmware", body)
}

// GetFirmware returns the installed firmware of an interconnect
func GetFirmware(ctx context.Context, api API, uri string) (types.Record, error) {
	return api.Do(ctx, http.MethodGet, uri+"/firmware", nil)
}

// ReplaceDriveEnclosure swaps a drive enclosure in a SAS logical interconnect
func ReplaceDriveEnclosure(ctx context.Context, api API, uri string, body types.Record) (types.Record, error) {
	return api.Do(ctx, http.MethodPost, uri+"/replaceDriveEnclosure", body)
}

// RepairVolume removes extra presentations of a volume
func RepairVolume(ctx context.Context, api API, volumeURI string) (types.Record, error) {
	body := types.Record{"resourceUri": volumeURI, "type": "ExtraManagedStorageVolumePaths"}
	return api.Do(ctx, http.MethodPost, StorageVolumes.Path+"/repair", body)
}

// Snapshots lists the snapshots of a volume
func Snapshots(ctx context.Context, api API, volumeURI string) ([]types.Record, error) {
	resp, err := api.Do(ctx, http.MethodGet, volumeURI+"/snapshots", nil)
	if err != nil {
		return nil, err
	}
	return Members(resp, "members"), nil
}

// CreateSnapshot takes a snapshot of a volume
func CreateSnapshot(ctx context.Context, api API, volumeURI string, body types.Record) (types.Record, error) {
	return api.Do(ctx, http.MethodPost, volumeURI+"/snapshots", body)
}

// DeleteSnapshot removes a volume snapshot
func DeleteSnapshot(ctx context.Context, api API, snapshotURI string) error {
	_, err := api.Do(ctx, http.MethodDelete, snapshotURI, nil)
	return err
}

// UpdateResourceAssignments adds and removes resources from a scope
func UpdateResourceAssignments(ctx context.Context, api API, scopeURI string, added, removed []string) (types.Record, error) {
	body := types.Record{
		"addedResourceUris":   toList(added),
		"removedResourceUris": toList(removed),
	}
	return api.Do(ctx, http.MethodPut, scopeURI+"/resource-assignments", body)
}

// Members extracts the records listed under key
func Members(resp types.Record, key string) []types.Record {
	list, _ := types.AsList(resp[key])
	out := make([]types.Record, 0, len(list))
	for _, e := range list {
		if rec, ok := types.AsRecord(e); ok {
			out = append(out, rec)
		}
	}
	return out
}

func toList(s []string) types.List {
	out := make(types.List, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
