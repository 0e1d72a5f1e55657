/*
Package storage provides the BoltDB run journal for ovconverge.

Every task result can be appended to a local journal (--journal path) so
operators can review what a batch run changed:

	store, err := storage.NewBoltStore("/var/lib/ovconverge/journal.db")
	if err != nil {
		return err
	}
	defer store.Close()

	store.Record(&storage.Entry{Module: "oneview_scope", Msg: "UPDATED", Changed: true})
	recent, _ := store.List(20)

# Layout

A single bucket, results, maps UUIDv7 ids to JSON encoded Entry values.
UUIDv7 ids are time ordered, so walking the bucket cursor backwards yields
the newest results first without a secondary index.

The journal is audit data only. The controller stays the source of truth and
every task re-reads live state before deciding anything.
*/
package storage
