package profile

import (
	"github.com/cuemby/ovconverge/pkg/canonical"
	"github.com/cuemby/ovconverge/pkg/merge"
	"github.com/cuemby/ovconverge/pkg/types"
)

// Server profile keys the merger knows about
const (
	KeyBIOS               = "bios"
	KeyBoot               = "boot"
	KeyBootMode           = "bootMode"
	KeyConnections        = "connections"
	KeyConnectionSettings = "connectionSettings"
	KeySANStorage         = "sanStorage"
	KeyVolumeAttachments  = "volumeAttachments"
	KeyStoragePaths       = "storagePaths"
	KeyOSDeployment       = "osDeploymentSettings"
	KeyCustomAttributes   = "osCustomAttributes"
	KeyLocalStorage       = "localStorage"
	KeySASLogicalJBODs    = "sasLogicalJBODs"
	KeyControllers        = "controllers"
	KeyLogicalDrives      = "logicalDrives"

	KeyID                = "id"
	KeyName              = "name"
	KeyPortID            = "portId"
	KeyConnectionID      = "connectionId"
	KeyDeviceSlot        = "deviceSlot"
	KeySASLogicalJBODID  = "sasLogicalJBODId"
	KeySASLogicalJBODURI = "sasLogicalJBODUri"
	KeyManageSANStorage  = "manageSanStorage"
)

// PortAuto asks the controller to pick a port for a connection
const PortAuto = "Auto"

// MACSuffix names the companion attribute holding the MAC address the
// controller assigned to a nic-typed OS custom attribute.
const MACSuffix = ".mac"

// Merger is the server profile merger: the generic deep merge followed by
// the connection, SAN, OS deployment and local storage rules.
type Merger struct {
	nicAttributes map[string]struct{}
	fn            merge.Func
}

// Option configures a Merger
type Option func(*Merger)

// WithNICAttributes declares the OS custom attributes whose deployment plan
// type is nic. Their MAC companions survive a custom attribute merge.
func WithNICAttributes(names ...string) Option {
	return func(m *Merger) {
		for _, n := range names {
			m.nicAttributes[n] = struct{}{}
		}
	}
}

// New creates a server profile Merger
func New(opts ...Option) *Merger {
	m := &Merger{nicAttributes: make(map[string]struct{})}
	for _, opt := range opts {
		opt(m)
	}
	m.fn = merge.Compose(merge.Merge,
		mergeBIOSAndBoot,
		mergeConnections,
		mergeSANStorage,
		m.mergeOSDeployment,
		mergeLocalStorage,
	)
	return m
}

// Merge computes the server profile update body
func (m *Merger) Merge(observed, desired types.Record) (types.Record, error) {
	return m.fn(observed, desired)
}

// Func exposes the merger as a merge.Func
func (m *Merger) Func() merge.Func {
	return m.fn
}

// shouldMerge is true when both sides carry a non-absent value for key
func shouldMerge(desired, observed types.Record, key string) bool {
	return !canonical.IsAbsent(desired[key]) && !canonical.IsAbsent(observed[key])
}

// removed is true when desired explicitly empties a block observed still has
func removed(desired, observed types.Record, key string) bool {
	v, ok := desired[key]
	return ok && canonical.IsAbsent(v) && !canonical.IsAbsent(observed[key])
}

func list(r types.Record, key string) types.List {
	l, _ := types.AsList(r[key])
	return l
}

func child(r types.Record, key string) types.Record {
	c, _ := types.Child(r, key)
	return c
}

func mergeBIOSAndBoot(merged, observed, desired types.Record) error {
	for _, key := range []string{KeyBIOS, KeyBoot, KeyBootMode} {
		if !shouldMerge(desired, observed, key) {
			continue
		}
		o, oOK := types.Child(observed, key)
		d, dOK := types.Child(desired, key)
		if !oOK || !dOK {
			continue
		}
		sub, err := merge.Merge(o, d)
		if err != nil {
			return err
		}
		merged[key] = sub
	}
	return nil
}

func mergeConnections(merged, observed, desired types.Record) error {
	if shouldMerge(desired, observed, KeyConnections) {
		conns, err := mergeConnectionList(list(observed, KeyConnections), list(desired, KeyConnections))
		if err != nil {
			return err
		}
		merged[KeyConnections] = conns
	}

	dcs, oc, mc := child(desired, KeyConnectionSettings), child(observed, KeyConnectionSettings), child(merged, KeyConnectionSettings)
	if dcs == nil || oc == nil || mc == nil || !shouldMerge(dcs, oc, KeyConnections) {
		return nil
	}
	conns, err := mergeConnectionList(list(oc, KeyConnections), list(dcs, KeyConnections))
	if err != nil {
		return err
	}
	mc[KeyConnections] = conns
	return nil
}

// mergeConnectionList merges connections by id, keeps the concrete port
// when the user asks for Auto, and deep-merges boot sub-records.
func mergeConnectionList(observed, desired types.List) (types.List, error) {
	merged := merge.ByKey(observed, desired, KeyID, merge.KeyOptions{
		ReplaceField:    KeyPortID,
		ReplaceSentinel: PortAuto,
	})

	observedByID := indexBy(observed, KeyID)
	desiredByID := indexBy(desired, KeyID)
	for _, c := range merged {
		conn, ok := types.AsRecord(c)
		if !ok {
			continue
		}
		id := canonical.Scalar(conn[KeyID])
		o, d := observedByID[id], desiredByID[id]
		if o == nil || d == nil {
			continue
		}
		ob, oOK := types.Child(o, KeyBoot)
		db, dOK := types.Child(d, KeyBoot)
		if !oOK || !dOK || len(ob) == 0 || len(db) == 0 {
			continue
		}
		boot, err := merge.Merge(ob, db)
		if err != nil {
			return nil, err
		}
		conn[KeyBoot] = boot
	}
	return merged, nil
}

func mergeSANStorage(merged, observed, desired types.Record) error {
	if removed(desired, observed, KeySANStorage) {
		merged[KeySANStorage] = types.Record{
			KeyManageSANStorage:  false,
			KeyVolumeAttachments: types.List{},
		}
		return nil
	}
	if !shouldMerge(desired, observed, KeySANStorage) {
		return nil
	}
	dsan, osan, msan := child(desired, KeySANStorage), child(observed, KeySANStorage), child(merged, KeySANStorage)
	if dsan == nil || osan == nil || msan == nil || canonical.IsAbsent(dsan[KeyVolumeAttachments]) {
		return nil
	}

	volumes := merge.ByKey(list(osan, KeyVolumeAttachments), list(dsan, KeyVolumeAttachments), KeyID, merge.KeyOptions{})

	observedByID := indexBy(list(osan, KeyVolumeAttachments), KeyID)
	for _, v := range volumes {
		volume, ok := types.AsRecord(v)
		if !ok {
			continue
		}
		existing := observedByID[canonical.Scalar(volume[KeyID])]
		if existing == nil {
			continue
		}
		mergedPaths, mOK := types.AsList(volume[KeyStoragePaths])
		existingPaths, eOK := types.AsList(existing[KeyStoragePaths])
		if !mOK || !eOK {
			continue
		}
		volume[KeyStoragePaths] = merge.ByKey(existingPaths, mergedPaths, KeyConnectionID, merge.KeyOptions{})
	}
	msan[KeyVolumeAttachments] = volumes
	return nil
}

func (m *Merger) mergeOSDeployment(merged, observed, desired types.Record) error {
	dos := child(desired, KeyOSDeployment)
	if dos == nil {
		return nil
	}
	attrs, ok := dos[KeyCustomAttributes]
	if !ok {
		return nil
	}
	mos := child(merged, KeyOSDeployment)
	if mos == nil {
		return nil
	}
	if canonical.IsAbsent(attrs) {
		mos[KeyCustomAttributes] = types.List{}
		return nil
	}

	desiredAttrs, _ := types.AsList(attrs)
	observedAttrs := list(child(observed, KeyOSDeployment), KeyCustomAttributes)
	mergedAttrs := merge.ByKey(observedAttrs, desiredAttrs, KeyName, merge.KeyOptions{})
	mos[KeyCustomAttributes] = m.keepMACCompanions(mergedAttrs, observedAttrs, desiredAttrs)
	return nil
}

// keepMACCompanions re-adds the controller-assigned MAC companion of every
// nic attribute the user set, unless the user set the companion too.
func (m *Merger) keepMACCompanions(merged, observed, desired types.List) types.List {
	if len(m.nicAttributes) == 0 {
		return merged
	}
	desiredByName := indexBy(desired, KeyName)
	mergedByName := indexBy(merged, KeyName)
	observedByName := indexBy(observed, KeyName)
	for _, d := range desired {
		attr, ok := types.AsRecord(d)
		if !ok {
			continue
		}
		name := types.String(attr, KeyName)
		if _, nic := m.nicAttributes[name]; !nic {
			continue
		}
		companion := name + MACSuffix
		if desiredByName[companion] != nil || mergedByName[companion] != nil {
			continue
		}
		if existing := observedByName[companion]; existing != nil {
			merged = append(merged, types.DeepCopy(existing))
		}
	}
	return merged
}

func mergeLocalStorage(merged, observed, desired types.Record) error {
	if removed(desired, observed, KeyLocalStorage) {
		merged[KeyLocalStorage] = types.Record{
			KeySASLogicalJBODs: types.List{},
			KeyControllers:     types.List{},
		}
		return nil
	}
	if !shouldMerge(desired, observed, KeyLocalStorage) {
		return nil
	}
	dls, ols, mls := child(desired, KeyLocalStorage), child(observed, KeyLocalStorage), child(merged, KeyLocalStorage)
	if dls == nil || ols == nil || mls == nil {
		return nil
	}

	if !canonical.IsAbsent(dls[KeySASLogicalJBODs]) {
		mls[KeySASLogicalJBODs] = merge.ByKey(list(ols, KeySASLogicalJBODs), list(mls, KeySASLogicalJBODs), KeyID, merge.KeyOptions{
			IgnoreWhenNull: []string{KeySASLogicalJBODURI},
		})
	}

	if !canonical.IsAbsent(dls[KeyControllers]) {
		controllers := merge.ByKey(list(ols, KeyControllers), list(mls, KeyControllers), KeyDeviceSlot, merge.KeyOptions{})
		mergeControllerDrives(controllers, list(ols, KeyControllers))
		mls[KeyControllers] = controllers
	}
	return nil
}

// mergeControllerDrives merges the logical drives of controllers sharing a
// device slot. Controllers in one slot are assumed to share a mode.
func mergeControllerDrives(merged, observed types.List) {
	for _, c := range merged {
		current, ok := types.AsRecord(c)
		if !ok || canonical.IsAbsent(current[KeyLogicalDrives]) {
			continue
		}
		for _, o := range observed {
			existing, ok := types.AsRecord(o)
			if !ok || canonical.Scalar(existing[KeyDeviceSlot]) != canonical.Scalar(current[KeyDeviceSlot]) {
				continue
			}
			drives := list(current, KeyLogicalDrives)
			key := driveKey(drives)
			if key == "" {
				continue
			}
			current[KeyLogicalDrives] = merge.ByKey(list(existing, KeyLogicalDrives), drives, key, merge.KeyOptions{})
		}
	}
}

// driveKey picks the identity shared by every drive: name, then
// sasLogicalJBODId. Empty when neither is present on all drives.
func driveKey(drives types.List) string {
	hasName, hasJBOD := true, true
	for _, d := range drives {
		drive, ok := types.AsRecord(d)
		if !ok {
			return ""
		}
		if canonical.IsAbsent(drive[KeyName]) {
			hasName = false
		}
		if canonical.IsAbsent(drive[KeySASLogicalJBODID]) {
			hasJBOD = false
		}
	}
	switch {
	case hasName:
		return KeyName
	case hasJBOD:
		return KeySASLogicalJBODID
	default:
		return ""
	}
}

func indexBy(l types.List, key string) map[string]types.Record {
	index := make(map[string]types.Record, len(l))
	for _, e := range l {
		rec, ok := types.AsRecord(e)
		if !ok || rec[key] == nil {
			continue
		}
		index[canonical.Scalar(rec[key])] = rec
	}
	return index
}
