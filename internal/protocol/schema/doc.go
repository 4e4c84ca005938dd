// Package schema owns the tag dictionary.
//
// Ownership boundary:
// - tag -> name/type/enum metadata
// - QuickFIX XML loading
// - JSON/YAML document loading
//
// Lookups never fail: unknown tags resolve to a synthesized Tag<id> name.
// Loading is the only operation that touches the filesystem and the only one
// that returns errors.
package schema
