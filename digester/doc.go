// Package digester calculates SHA256 file digests in the lowercase hex form
// recorded by .cargo-checksum.json manifests. A missing file is reported as
// not found rather than as an error so callers can drop dangling entries.
package digester
