package manifest

import (
	"bytes"
	"fmt"
)

// Entry is one path/digest pair of the files table.
type Entry struct {
	Path   string
	Digest string
}

// Files is the ordered files table of a manifest. Entries keep
// their insertion order; setting an existing path replaces its
// digest in place.
type Files struct {
	entries []Entry
	index   map[string]int
}

// NewFiles returns an empty files table.
func NewFiles() *Files {
	return &Files{index: make(map[string]int)}
}

// Set records digest for path.
func (ft *Files) Set(path string, digest string) {
	if ft.index == nil {
		ft.index = make(map[string]int)
	}

	if idx, ok := ft.index[path]; ok {
		ft.entries[idx].Digest = digest
		return
	}

	ft.index[path] = len(ft.entries)
	ft.entries = append(ft.entries, Entry{Path: path, Digest: digest})
}

// Get returns the digest recorded for path.
func (ft *Files) Get(path string) (string, bool) {
	idx, ok := ft.index[path]
	if !ok {
		return "", false
	}

	return ft.entries[idx].Digest, true
}

// Len returns the number of entries.
func (ft *Files) Len() int {
	return len(ft.entries)
}

// Entries returns a copy of the entries in table order.
func (ft *Files) Entries() []Entry {
	out := make([]Entry, len(ft.entries))
	copy(out, ft.entries)

	return out
}

// Paths returns the recorded paths in table order.
func (ft *Files) Paths() []string {
	out := make([]string, 0, len(ft.entries))
	for _, en := range ft.entries {
		out = append(out, en.Path)
	}

	return out
}

func (ft *Files) encode(buf *bytes.Buffer) error {
	const errCtx = "encoding files"

	buf.WriteByte('{')

	for i, en := range ft.entries {
		if i > 0 {
			buf.WriteByte(',')
		}

		if err := writeString(buf, en.Path); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		buf.WriteByte(':')

		if err := writeString(buf, en.Digest); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	buf.WriteByte('}')

	return nil
}
