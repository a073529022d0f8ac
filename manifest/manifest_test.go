package manifest_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/cargo_checksums/manifest"
)

// writeTemp creates a temporary file with content and
// returns its path.
func writeTemp(
	tb testing.TB,
	dir string,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, name)
	require.NoError(
		tb,
		os.WriteFile(pa, []byte(content), 0o600),
	)

	return pa
}

func encode(tb testing.TB, raw string) string {
	tb.Helper()

	mf, err := manifest.Parse([]byte(raw))
	require.NoError(tb, err)

	out, err := mf.Encode()
	require.NoError(tb, err)

	return string(out)
}

func TestParse_reads_files_in_order(t *testing.T) {
	t.Parallel()

	mf, err := manifest.Parse([]byte(
		`{"files":{"b.rs":"11","a.rs":"22","c.rs":"33"}}`,
	))

	require.NoError(t, err)
	assert.Equal(
		t,
		[]string{"b.rs", "a.rs", "c.rs"},
		mf.Files().Paths(),
	)

	got, ok := mf.Files().Get("a.rs")
	assert.True(t, ok)
	assert.Equal(t, "22", got)
}

func TestParse_malformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":          "",
		"whitespace":     "  \n",
		"not json":       "files = 1",
		"array":          `[{"files":{}}]`,
		"string":         `"files"`,
		"files array":    `{"files":["a.rs"]}`,
		"files null":     `{"files":null}`,
		"files string":   `{"files":"a.rs"}`,
		"trailing data":  `{"files":{}} {}`,
		"truncated":      `{"files":{"a.rs":"1"}`,
		"trailing comma": `{"files":{},}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := manifest.Parse([]byte(raw))

			require.Error(t, err)
			assert.ErrorIs(t, err, manifest.ErrMalformedManifest)
			assert.NotErrorIs(t, err, manifest.ErrMissingField)
		})
	}
}

func TestParse_missing_files_field(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{}`,
		`{"package":"abc"}`,
		`{"Files":{}}`,
	} {
		_, err := manifest.Parse([]byte(raw))

		require.Error(t, err, raw)
		assert.ErrorIs(t, err, manifest.ErrMissingField, raw)
		assert.Contains(t, err.Error(), `"files"`)
	}
}

func TestParse_non_string_digest_reads_empty(t *testing.T) {
	t.Parallel()

	mf, err := manifest.Parse([]byte(
		`{"files":{"a.rs":1,"b.rs":null,"c.rs":{"x":"y"}}}`,
	))

	require.NoError(t, err)
	assert.Equal(t, 3, mf.Files().Len())

	for _, en := range mf.Files().Entries() {
		assert.Empty(t, en.Digest, en.Path)
	}
}

func TestParse_duplicate_keys_keep_first_position(t *testing.T) {
	t.Parallel()

	got := encode(
		t,
		`{"package":"a","files":{"x":"1","y":"2","x":"3"},"package":"b"}`,
	)

	assert.Equal(
		t,
		`{"package":"b","files":{"x":"3","y":"2"}}`,
		got,
	)
}

func TestEncode_concrete_scenario_is_compact(t *testing.T) {
	t.Parallel()

	got := encode(
		t,
		`{"files":{"a.txt":"deadbeef","missing.txt":"cafebabe"}}`,
	)

	assert.Equal(
		t,
		`{"files":{"a.txt":"deadbeef","missing.txt":"cafebabe"}}`,
		got,
	)
}

func TestEncode_strips_whitespace(t *testing.T) {
	t.Parallel()

	got := encode(t, `{
  "files" : { "src/lib.rs" : "ab" },
  "package" : "0123",
  "meta" : { "tags" : [ 1, 2.50, "x y" ], "ok" : true }
}`)

	assert.Equal(
		t,
		`{"files":{"src/lib.rs":"ab"},"package":"0123",`+
			`"meta":{"tags":[1,2.50,"x y"],"ok":true}}`,
		got,
	)
}

func TestEncode_preserves_field_order(t *testing.T) {
	t.Parallel()

	raw := `{"zeta":null,"files":{},"alpha":{"b":1,"a":2},"package":"p"}`

	mf, err := manifest.Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(
		t,
		[]string{"zeta", "files", "alpha", "package"},
		mf.Keys(),
	)

	out, err := mf.Encode()
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))
}

func TestEncode_escapes_non_ascii(t *testing.T) {
	t.Parallel()

	got := encode(
		t,
		`{"files":{"café.rs":"1","😀.txt":"2","a<b>&c":"3"},"name":"naïve"}`,
	)

	assert.Equal(
		t,
		`{"files":{"caf\u00e9.rs":"1","\ud83d\ude00.txt":"2","a<b>&c":"3"},`+
			`"name":"na\u00efve"}`,
		got,
	)
}

func TestEncode_keeps_html_characters_raw(t *testing.T) {
	t.Parallel()

	got := encode(
		t,
		`{"files":{"a&b<c>.rs":"1"},"note":"x<y>&z"}`,
	)

	assert.Equal(
		t,
		`{"files":{"a&b<c>.rs":"1"},"note":"x<y>&z"}`,
		got,
	)
}

func TestEncode_cargo_manifest_round_trips(t *testing.T) {
	t.Parallel()

	raw := `{"files":{"Cargo.toml":"aa","src/lib.rs":"bb"},` +
		`"package":"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"}`

	first := encode(t, raw)
	assert.Equal(t, raw, first)
	assert.Equal(t, raw, encode(t, first))
}

func TestEncode_opaque_fields_after_content(t *testing.T) {
	t.Parallel()

	got := encode(
		t,
		`{"a":1, "files":{"x":"1"}, "b":[ true ], "c":{ "d" : "e" }}`,
	)

	assert.Equal(
		t,
		`{"a":1,"files":{"x":"1"},"b":[true],"c":{"d":"e"}}`,
		got,
	)
}

func TestParse_rejects_invalid_utf8(t *testing.T) {
	t.Parallel()

	_, err := manifest.Parse([]byte("{\"files\":{},\"y\":\"\xff\"}"))

	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrMalformedManifest)
	assert.Contains(t, err.Error(), "invalid UTF-8")
}

func TestEncode_escapes_del(t *testing.T) {
	t.Parallel()

	files := manifest.NewFiles()
	files.Set("a\x7f", "1")

	mf, err := manifest.Parse([]byte(`{"files":{}}`))
	require.NoError(t, err)
	mf.SetFiles(files)

	out, err := mf.Encode()

	require.NoError(t, err)
	assert.Equal(t, `{"files":{"a\u007f":"1"}}`, string(out))
}

func TestSetFiles_replaces_only_files(t *testing.T) {
	t.Parallel()

	mf, err := manifest.Parse([]byte(
		`{"package":"abc","files":{"old":"1"}}`,
	))
	require.NoError(t, err)

	files := manifest.NewFiles()
	files.Set("new", "2")
	mf.SetFiles(files)

	out, err := mf.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"package":"abc","files":{"new":"2"}}`, string(out))

	pkg, ok := mf.Field("package")
	require.True(t, ok)
	assert.JSONEq(t, `"abc"`, string(pkg))

	_, ok = mf.Field("files")
	assert.False(t, ok)
}

func TestFiles_set_existing_keeps_position(t *testing.T) {
	t.Parallel()

	files := manifest.NewFiles()
	files.Set("a", "1")
	files.Set("b", "2")
	files.Set("a", "3")

	assert.Equal(
		t,
		[]manifest.Entry{
			{Path: "a", Digest: "3"},
			{Path: "b", Digest: "2"},
		},
		files.Entries(),
	)

	_, ok := files.Get("c")
	assert.False(t, ok)
}

func TestFiles_zero_value_is_usable(t *testing.T) {
	t.Parallel()

	var files manifest.Files

	_, ok := files.Get("a")
	assert.False(t, ok)

	files.Set("a", "1")
	assert.Equal(t, 1, files.Len())
}

func TestLoad_missing_file(t *testing.T) {
	t.Parallel()

	_, err := manifest.Load(
		filepath.Join(t.TempDir(), ".cargo-checksum.json"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "loading manifest")
}

func TestLoad_malformed_names_path(t *testing.T) {
	t.Parallel()

	pa := writeTemp(t, t.TempDir(), "bad.json", "{")

	_, err := manifest.Load(pa)

	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrMalformedManifest)
	assert.Contains(t, err.Error(), pa)
}

func TestSave_overwrites_and_keeps_mode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pa := writeTemp(
		t, dir, ".cargo-checksum.json",
		`{ "files": { "a": "1" }, "package": "p" }`,
	)
	require.NoError(t, os.Chmod(pa, 0o640))

	mf, err := manifest.Load(pa)
	require.NoError(t, err)
	require.NoError(t, mf.Save(pa))

	got, err := os.ReadFile(pa)
	require.NoError(t, err)
	assert.Equal(t, `{"files":{"a":"1"},"package":"p"}`, string(got))

	st, err := os.Stat(pa)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), st.Mode().Perm())
}

func TestSave_unwritable_directory(t *testing.T) {
	t.Parallel()

	mf, err := manifest.Parse([]byte(`{"files":{}}`))
	require.NoError(t, err)

	err = mf.Save(filepath.Join(t.TempDir(), "missing", "m.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving manifest")
}

func FuzzParse(f *testing.F) {
	f.Add(`{"files":{}}`)
	f.Add(`{"files":{"a.txt":"deadbeef"},"package":"x"}`)
	f.Add(`{"files":{"é":"1"}}`)
	f.Add(`[]`)
	f.Add("{\"files\":{},\"y\":\"\xff\"}")
	f.Add(`{"files":{"a&b":"<>"},"p":"q"}`)
	f.Add(``)

	f.Fuzz(func(t *testing.T, raw string) {
		mf, err := manifest.Parse([]byte(raw))
		if err != nil {
			return
		}

		out, err := mf.Encode()
		require.NoError(t, err)

		// The canonical form is a fixed point.
		again, err := manifest.Parse(out)
		require.NoError(t, err)

		out2, err := again.Encode()
		require.NoError(t, err)
		assert.Equal(t, string(out), string(out2))
	})
}
