// Package state persists merged OCDS records and extends them incrementally.
//
// A Store loads and saves one merged document per Ref. Updater is the write
// path: it loads the prior record, rebuilds a merge session from it, folds new
// releases in, and saves the result with a content ETag.
//
// Data flow:
//
//	Store.Load -> Merger.NewCompiledRelease/NewVersionedRelease(prior)
//	           -> MergedRelease.Extend(releases) -> Store.Save
//
// Deterministic keys:
//
//	Ref.Identifier() is "{kind}/{ocid}", e.g. "compiled/ocds-213czf-1".
//
// Concurrency:
//
//	Meta.ETag is a highwayhash digest of the saved document. Passing the ETag
//	read earlier to Updater.Append makes the write fail with ErrETagMismatch
//	when another writer saved in between.
package state
