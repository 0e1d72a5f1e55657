package resolve

import "github.com/cuemby/ovconverge/pkg/client"

// NetworkKinds is the probe order for polymorphic network references
var NetworkKinds = []client.Kind{
	client.FCNetworks,
	client.FCoENetworks,
	client.NetworkSets,
	client.EthernetNetworks,
}

// ScopeRule rewrites initialScopeNames, accepted by most kinds on create
var ScopeRule = Rule{Name: "initialScopeNames", URI: "initialScopeUris", Kinds: []client.Kind{client.Scopes}, Multi: true}

func connectionRules(scope string) []Rule {
	return []Rule{
		{Scope: scope, Name: "interconnectName", URI: "interconnectUri", Kinds: []client.Kind{client.Interconnects}},
		{Scope: scope, Name: "networkName", URI: "networkUri", Kinds: NetworkKinds, Label: "Network"},
	}
}

// ServerProfileRules resolve server profile and server profile template names
var ServerProfileRules = append([]Rule{
	{Name: "enclosureGroupName", URI: "enclosureGroupUri", Kinds: []client.Kind{client.EnclosureGroups}},
	{Name: "serverHardwareTypeName", URI: "serverHardwareTypeUri", Kinds: []client.Kind{client.ServerHardwareTypes}},
	{Name: "serverHardwareName", URI: "serverHardwareUri", Kinds: []client.Kind{client.ServerHardware}},
	{Name: "enclosureName", URI: "enclosureUri", Kinds: []client.Kind{client.Enclosures}},
	{Name: "serverProfileTemplateName", URI: "serverProfileTemplateUri", Kinds: []client.Kind{client.ServerProfileTemplates}},
	{Scope: "firmware", Name: "firmwareBaselineName", URI: "firmwareBaselineUri", Kinds: []client.Kind{client.FirmwareDrivers}},
	{Scope: "osDeploymentSettings", Name: "osDeploymentPlanName", URI: "osDeploymentPlanUri", Kinds: []client.Kind{client.OSDeploymentPlans}},
	{Scope: "sanStorage.volumeAttachments", Name: "volumeName", URI: "volumeUri", Kinds: []client.Kind{client.StorageVolumes}},
	{Scope: "sanStorage.volumeAttachments", Name: "volumeStoragePoolName", URI: "volumeStoragePoolUri", Kinds: []client.Kind{client.StoragePools}},
	{Scope: "sanStorage.volumeAttachments", Name: "volumeStorageSystemName", URI: "volumeStorageSystemUri", Kinds: []client.Kind{client.StorageSystems}},
	{Scope: "localStorage.sasLogicalJBODs", Name: "sasLogicalJBODName", URI: "sasLogicalJBODUri", Kinds: []client.Kind{client.SASLogicalJBODs}},
	ScopeRule,
}, append(connectionRules("connections"), connectionRules("connectionSettings.connections")...)...)

// UplinkSetRules resolve uplink set names
var UplinkSetRules = []Rule{
	{Name: "logicalInterconnectName", URI: "logicalInterconnectUri", Kinds: []client.Kind{client.LogicalInterconnects}},
	{Name: "networkNames", URI: "networkUris", Kinds: []client.Kind{client.EthernetNetworks}, Label: "Ethernet Network", Multi: true},
	{Name: "fcNetworkNames", URI: "fcNetworkUris", Kinds: []client.Kind{client.FCNetworks}, Multi: true},
	{Name: "fcoeNetworkNames", URI: "fcoeNetworkUris", Kinds: []client.Kind{client.FCoENetworks}, Multi: true},
	{Name: "nativeNetworkName", URI: "nativeNetworkUri", Kinds: []client.Kind{client.EthernetNetworks}},
}

// LogicalInterconnectGroupRules resolve logical interconnect group names
var LogicalInterconnectGroupRules = []Rule{
	{Scope: "uplinkSets", Name: "networkNames", URI: "networkUris", Kinds: []client.Kind{client.EthernetNetworks, client.FCNetworks, client.FCoENetworks}, Label: "Network", Multi: true},
	{Scope: "uplinkSets", Name: "nativeNetworkName", URI: "nativeNetworkUri", Kinds: []client.Kind{client.EthernetNetworks}},
	{Scope: "interconnectMapTemplate.interconnectMapEntryTemplates", Name: "permittedInterconnectTypeName", URI: "permittedInterconnectTypeUri", Kinds: []client.Kind{client.InterconnectTypes}},
	{Name: "internalNetworkNames", URI: "internalNetworkUris", Kinds: []client.Kind{client.EthernetNetworks}, Multi: true},
	ScopeRule,
}

// EnclosureGroupRules resolve enclosure group names
var EnclosureGroupRules = []Rule{
	{Scope: "interconnectBayMappings", Name: "logicalInterconnectGroupName", URI: "logicalInterconnectGroupUri", Kinds: []client.Kind{client.LogicalInterconnectGroups}},
	ScopeRule,
}

// EnclosureRules resolve enclosure names
var EnclosureRules = []Rule{
	{Name: "enclosureGroupName", URI: "enclosureGroupUri", Kinds: []client.Kind{client.EnclosureGroups}},
	ScopeRule,
}

// NetworkSetRules resolve network set names
var NetworkSetRules = []Rule{
	{Name: "networkNames", URI: "networkUris", Kinds: []client.Kind{client.EthernetNetworks}, Multi: true},
	{Name: "nativeNetworkName", URI: "nativeNetworkUri", Kinds: []client.Kind{client.EthernetNetworks}},
	ScopeRule,
}

// NetworkRules resolve ethernet, FC and FCoE network names
var NetworkRules = []Rule{ScopeRule}

// StoragePoolRules resolve storage pool names
var StoragePoolRules = []Rule{
	{Name: "storageSystemName", URI: "storageSystemUri", Kinds: []client.Kind{client.StorageSystems}},
}

// VolumeRules resolve volume names
var VolumeRules = []Rule{
	{Name: "templateName", URI: "templateUri", Kinds: []client.Kind{client.StorageVolumeTemplates}},
	{Name: "storageSystemName", URI: "storageSystemUri", Kinds: []client.Kind{client.StorageSystems}},
	{Scope: "properties", Name: "storagePoolName", URI: "storagePool", Kinds: []client.Kind{client.StoragePools}},
	{Scope: "properties", Name: "snapshotPoolName", URI: "snapshotPool", Kinds: []client.Kind{client.StoragePools}},
	ScopeRule,
}

// VolumeTemplateRules resolve storage volume template names
var VolumeTemplateRules = []Rule{
	{Name: "storagePoolName", URI: "storagePoolUri", Kinds: []client.Kind{client.StoragePools}},
	{Name: "snapshotPoolName", URI: "snapshotPoolUri", Kinds: []client.Kind{client.StoragePools}},
	{Name: "storageSystemName", URI: "storageSystemUri", Kinds: []client.Kind{client.StorageSystems}},
}

// DeploymentPlanRules resolve image streamer deployment plan names
var DeploymentPlanRules = []Rule{
	{Name: "oeBuildPlanName", URI: "oeBuildPlanURI", Kinds: []client.Kind{client.BuildPlans}},
	{Name: "goldenImageName", URI: "goldenImageURI", Kinds: []client.Kind{client.GoldenImages}},
}

// GoldenImageRules resolve image streamer golden image names
var GoldenImageRules = []Rule{
	{Name: "osVolumeName", URI: "osVolumeURI", Kinds: []client.Kind{client.OSVolumes}},
	{Name: "buildPlanName", URI: "buildPlanUri", Kinds: []client.Kind{client.BuildPlans}},
}

// BuildPlanRules resolve image streamer build plan names
var BuildPlanRules = []Rule{
	{Scope: "buildStep", Name: "planScriptName", URI: "planScriptUri", Kinds: []client.Kind{client.PlanScripts}},
}

// ArtifactBundleRules resolve image streamer artifact bundle names
var ArtifactBundleRules = []Rule{
	{Scope: "deploymentPlans", Name: "deploymentPlanName", URI: "resourceUri", Kinds: []client.Kind{client.DeploymentPlans}},
	{Scope: "goldenImages", Name: "goldenImageName", URI: "resourceUri", Kinds: []client.Kind{client.GoldenImages}},
	{Scope: "buildPlans", Name: "buildPlanName", URI: "resourceUri", Kinds: []client.Kind{client.BuildPlans}},
	{Scope: "planScripts", Name: "planScriptName", URI: "resourceUri", Kinds: []client.Kind{client.PlanScripts}},
}
