package client

import "strings"

// Kind describes one controller resource collection
type Kind struct {
	// Name is the collection name used in logs and lookups
	Name string
	// Label is the human name used in error messages
	Label string
	// Path is the collection URI
	Path string
	// Streamer kinds live on the image streamer appliance
	Streamer bool
}

var (
	EthernetNetworks          = Kind{Name: "ethernet-networks", Label: "Ethernet Network", Path: "/rest/ethernet-networks"}
	FCNetworks                = Kind{Name: "fc-networks", Label: "FC Network", Path: "/rest/fc-networks"}
	FCoENetworks              = Kind{Name: "fcoe-networks", Label: "FCoE Network", Path: "/rest/fcoe-networks"}
	NetworkSets               = Kind{Name: "network-sets", Label: "Network Set", Path: "/rest/network-sets"}
	ConnectionTemplates       = Kind{Name: "connection-templates", Label: "Connection Template", Path: "/rest/connection-templates"}
	UplinkSets                = Kind{Name: "uplink-sets", Label: "Uplink Set", Path: "/rest/uplink-sets"}
	LogicalInterconnectGroups = Kind{Name: "logical-interconnect-groups", Label: "Logical Interconnect Group", Path: "/rest/logical-interconnect-groups"}
	LogicalInterconnects      = Kind{Name: "logical-interconnects", Label: "Logical Interconnect", Path: "/rest/logical-interconnects"}
	Interconnects             = Kind{Name: "interconnects", Label: "Interconnect", Path: "/rest/interconnects"}
	InterconnectTypes         = Kind{Name: "interconnect-types", Label: "Interconnect Type", Path: "/rest/interconnect-types"}
	EnclosureGroups           = Kind{Name: "enclosure-groups", Label: "Enclosure Group", Path: "/rest/enclosure-groups"}
	Enclosures                = Kind{Name: "enclosures", Label: "Enclosure", Path: "/rest/enclosures"}
	ServerHardware            = Kind{Name: "server-hardware", Label: "Server Hardware", Path: "/rest/server-hardware"}
	ServerHardwareTypes       = Kind{Name: "server-hardware-types", Label: "Server Hardware Type", Path: "/rest/server-hardware-types"}
	ServerProfiles            = Kind{Name: "server-profiles", Label: "Server Profile", Path: "/rest/server-profiles"}
	ServerProfileTemplates    = Kind{Name: "server-profile-templates", Label: "Server Profile Template", Path: "/rest/server-profile-templates"}
	FirmwareDrivers           = Kind{Name: "firmware-drivers", Label: "Firmware Driver", Path: "/rest/firmware-drivers"}
	StorageSystems            = Kind{Name: "storage-systems", Label: "Storage System", Path: "/rest/storage-systems"}
	StoragePools              = Kind{Name: "storage-pools", Label: "Storage Pool", Path: "/rest/storage-pools"}
	StorageVolumes            = Kind{Name: "storage-volumes", Label: "Volume", Path: "/rest/storage-volumes"}
	StorageVolumeTemplates    = Kind{Name: "storage-volume-templates", Label: "Storage Volume Template", Path: "/rest/storage-volume-templates"}
	SANManagers               = Kind{Name: "san-managers", Label: "SAN Manager", Path: "/rest/fc-sans/device-managers"}
	SANProviders              = Kind{Name: "san-providers", Label: "SAN Provider", Path: "/rest/fc-sans/providers"}
	SASLogicalJBODs           = Kind{Name: "sas-logical-jbods", Label: "SAS Logical JBOD", Path: "/rest/sas-logical-jbods"}
	SASLogicalInterconnects   = Kind{Name: "sas-logical-interconnects", Label: "SAS Logical Interconnect", Path: "/rest/sas-logical-interconnects"}
	Scopes                    = Kind{Name: "scopes", Label: "Scope", Path: "/rest/scopes"}
	OSDeploymentPlans         = Kind{Name: "os-deployment-plans", Label: "OS Deployment Plan", Path: "/rest/os-deployment-plans"}

	DeploymentPlans = Kind{Name: "deployment-plans", Label: "Deployment Plan", Path: "/rest/deployment-plans", Streamer: true}
	GoldenImages    = Kind{Name: "golden-images", Label: "Golden Image", Path: "/rest/golden-images", Streamer: true}
	PlanScripts     = Kind{Name: "plan-scripts", Label: "Plan Script", Path: "/rest/plan-scripts", Streamer: true}
	BuildPlans      = Kind{Name: "build-plans", Label: "Build Plan", Path: "/rest/build-plans", Streamer: true}
	ArtifactBundles = Kind{Name: "artifact-bundles", Label: "Artifact Bundle", Path: "/rest/artifact-bundles", Streamer: true}
	OSVolumes       = Kind{Name: "os-volumes", Label: "OS Volume", Path: "/rest/os-volumes", Streamer: true}
)

// Kinds lists every known collection
var Kinds = []Kind{
	EthernetNetworks, FCNetworks, FCoENetworks, NetworkSets, ConnectionTemplates,
	UplinkSets, LogicalInterconnectGroups, LogicalInterconnects, Interconnects,
	InterconnectTypes, EnclosureGroups, Enclosures, ServerHardware,
	ServerHardwareTypes, ServerProfiles, ServerProfileTemplates, FirmwareDrivers,
	StorageSystems, StoragePools, StorageVolumes, StorageVolumeTemplates,
	SANManagers, SANProviders, SASLogicalJBODs, SASLogicalInterconnects, Scopes,
	OSDeploymentPlans,
	DeploymentPlans, GoldenImages, PlanScripts, BuildPlans, ArtifactBundles,
	OSVolumes,
}

// KindForURI returns the kind whose path is the longest prefix of uri
func KindForURI(uri string) (Kind, bool) {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	var best Kind
	found := false
	for _, k := range Kinds {
		if uri != k.Path && !strings.HasPrefix(uri, k.Path+"/") {
			continue
		}
		if !found || len(k.Path) > len(best.Path) {
			best, found = k, true
		}
	}
	return best, found
}

// IsURI reports whether s looks like a controller resource URI
func IsURI(s string) bool {
	return strings.HasPrefix(s, "/rest/")
}
