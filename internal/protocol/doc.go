// Package protocol owns the tag=value decoder and its read views.
//
// Ownership boundary:
// - delimiter normalization and tokenization
// - per-tag resolution through a schema.Dictionary
// - structural presence checks
// - flattened and human-readable projections
//
// Decoding is best effort: anomalies are reported in DecodeResult.Errors and never
// abort a decode. Session-level concerns (sequence numbers, checksums, body length,
// repeating groups) are not handled here.
package protocol
