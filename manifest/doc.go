// Package manifest reads and writes .cargo-checksum.json manifests.
//
// A Manifest keeps its top-level fields in their original order. The files
// table is decoded into an ordered Files value; every other field is carried
// as raw JSON and written back unchanged apart from whitespace. Encode
// produces the compact form with "," and ":" separators, no spaces, and all
// non-ASCII characters escaped, so downstream tools comparing bytes see the
// same output the original maintenance script produced.
package manifest
