/*
Package merge computes update bodies by applying a partial desired record to
the live record fetched from the controller.

Two primitives live here:

  - Merge: recursive deep merge. Keys the desired record leaves out survive,
    nested records merge, sequences and scalars are replaced wholesale.
  - ByKey: merge of two sequences of records by an identity field, with
    null-ignore and sentinel-replacement policies. Entries the updated list
    omits are dropped, which is how a task deletes items from a collection.

Domain mergers are built by composition rather than by extending a type:

	serverProfile := merge.Compose(merge.Merge,
		mergeConnections,
		mergeSANStorage,
	)
	body, err := serverProfile(observed, desired)

Each Rule receives the merged record plus the untouched observed and desired
records and rewrites the sub-tree it owns.
*/
package merge
