// Package refresher repairs .cargo-checksum.json manifests after files
// have been removed from a crate. Refresh rebuilds the files table of one
// manifest, keeping only entries whose file still exists and recording each
// file's current SHA256 digest; every other manifest field is written back
// unchanged. A missing manifest is a successful no-op, while a malformed
// manifest or an unreadable file aborts without writing anything.
//
// RefreshTree applies Refresh to every manifest of a cargo vendor
// directory. RenderSummary and WriteReport describe the outcome.
package refresher
