package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// FilesKey is the name of the required files table field.
const FilesKey = "files"

var (
	// ErrMalformedManifest is returned when the manifest is
	// not a JSON object or its files field is not an object.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrMissingField is returned when the manifest has no
	// files field.
	ErrMissingField = errors.New("missing required field")
)

// field is a top-level manifest field. raw is unused for the
// files field, whose value lives in Manifest.files.
type field struct {
	key string
	raw json.RawMessage
}

// Manifest is a parsed .cargo-checksum.json. Fields other than
// files are carried through untouched in their original order.
type Manifest struct {
	fields []field
	files  *Files
}

// Parse decodes a manifest from data.
func Parse(data []byte) (*Manifest, error) {
	const errCtx = "parsing manifest"

	if !json.Valid(data) {
		return nil, fmt.Errorf(
			"%s: %w: invalid JSON", errCtx, ErrMalformedManifest,
		)
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf(
			"%s: %w: invalid UTF-8", errCtx, ErrMalformedManifest,
		)
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	mf := &Manifest{}
	seen := make(map[string]int)

	for dec.More() {
		key, raw, err := nextMember(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		if key == FilesKey {
			files, err := parseFiles(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", errCtx, err)
			}

			mf.files = files
			raw = nil
		} else {
			raw, err = compact(raw)
			if err != nil {
				return nil, fmt.Errorf(
					"%s: field %q: %w", errCtx, key, err,
				)
			}
		}

		// Duplicate keys keep the first position and the
		// last value.
		if idx, ok := seen[key]; ok {
			mf.fields[idx].raw = raw
			continue
		}

		seen[key] = len(mf.fields)
		mf.fields = append(mf.fields, field{key: key, raw: raw})
	}

	if mf.files == nil {
		return nil, fmt.Errorf(
			"%s: %w %q", errCtx, ErrMissingField, FilesKey,
		)
	}

	return mf, nil
}

// Load reads and parses the manifest at path. A missing file
// yields an error matching fs.ErrNotExist.
func Load(path string) (*Manifest, error) {
	const errCtx = "loading manifest"

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided by design
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	mf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return mf, nil
}

// Files returns the files table.
func (mf *Manifest) Files() *Files {
	return mf.files
}

// SetFiles replaces the files table, leaving every other field
// untouched.
func (mf *Manifest) SetFiles(files *Files) {
	mf.files = files

	for _, fd := range mf.fields {
		if fd.key == FilesKey {
			return
		}
	}

	mf.fields = append(mf.fields, field{key: FilesKey})
}

// Keys returns the top-level field names in order.
func (mf *Manifest) Keys() []string {
	out := make([]string, 0, len(mf.fields))
	for _, fd := range mf.fields {
		out = append(out, fd.key)
	}

	return out
}

// Field returns the raw JSON value of a field other than files.
func (mf *Manifest) Field(key string) (json.RawMessage, bool) {
	for _, fd := range mf.fields {
		if fd.key == key && key != FilesKey {
			return fd.raw, true
		}
	}

	return nil, false
}

// Encode serializes the manifest compactly with no space after
// ',' or ':', fields in their original order, and all non-ASCII
// characters escaped.
func (mf *Manifest) Encode() ([]byte, error) {
	const errCtx = "encoding manifest"

	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, fd := range mf.fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		if err := writeString(&buf, fd.key); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		buf.WriteByte(':')

		if fd.key == FilesKey {
			files := mf.files
			if files == nil {
				files = NewFiles()
			}

			if err := files.encode(&buf); err != nil {
				return nil, fmt.Errorf("%s: %w", errCtx, err)
			}

			continue
		}

		if len(fd.raw) == 0 {
			buf.WriteString("null")
			continue
		}

		buf.Write(fd.raw)
	}

	buf.WriteByte('}')

	return escapeNonASCII(buf.Bytes()), nil
}

// Save encodes the manifest and overwrites path with it. An
// existing file keeps its permissions.
func (mf *Manifest) Save(path string) error {
	const errCtx = "saving manifest"

	data, err := mf.Encode()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // manifest is not secret
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// compact strips insignificant whitespace from an opaque field
// value. It compacts into a fresh buffer: goccy/go-json's
// Compact repeats any bytes already held by dst.
func compact(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var sc bytes.Buffer

	if err := json.Compact(&sc, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}

	return sc.Bytes(), nil
}

// parseFiles decodes the files object. Recorded values that are
// not strings read as the empty digest.
func parseFiles(raw json.RawMessage) (*Files, error) {
	const errCtx = "parsing files"

	dec := json.NewDecoder(bytes.NewReader(raw))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	files := NewFiles()

	for dec.More() {
		path, val, err := nextMember(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		var digest string

		_ = json.Unmarshal(val, &digest) //nolint:errcheck // non-string values read as ""

		files.Set(path, digest)
	}

	return files, nil
}

// expectDelim consumes the next token and checks it is the
// given delimiter.
func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty document", ErrMalformedManifest)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}

	if got, ok := tok.(json.Delim); !ok || got != want {
		return fmt.Errorf(
			"%w: expected %q, got %v", ErrMalformedManifest, want, tok,
		)
	}

	return nil
}

// nextMember reads one object member as its key and raw value.
func nextMember(
	dec *json.Decoder,
) (string, json.RawMessage, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}

	key, ok := tok.(string)
	if !ok {
		return "", nil, fmt.Errorf(
			"%w: expected object key, got %v", ErrMalformedManifest, tok,
		)
	}

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return "", nil, fmt.Errorf(
			"%w: value of %q: %w", ErrMalformedManifest, key, err,
		)
	}

	return key, raw, nil
}
