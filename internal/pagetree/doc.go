// Package pagetree builds the per-group page hierarchy from flat content
// records.
//
// A record's path is computed from the group's hierarchy fields (see
// ComputePath) and the record is committed onto the node at that path,
// creating index nodes for any missing intermediate levels. Sibling order is
// always derived from the ordering key, never from insertion order.
//
// A parent exclusively owns its children. Parent and root pointers are
// back-references for navigation only.
package pagetree
