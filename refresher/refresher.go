package refresher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/byte4ever/cargo_checksums/digester"
	"github.com/byte4ever/cargo_checksums/manifest"
)

// DefaultManifest is the manifest refreshed when no path is
// given: the checksum file of the crate in the working
// directory.
const DefaultManifest = "./" + ManifestName

// ManifestName is the file name cargo vendor writes into every
// vendored crate.
const ManifestName = ".cargo-checksum.json"

// Options tunes a refresh run.
type Options struct {
	// DryRun computes the refreshed table without writing
	// the manifest back.
	DryRun bool
}

// Report describes the outcome of refreshing one manifest.
type Report struct {
	// Manifest is the path of the refreshed manifest.
	Manifest string `yaml:"manifest"`

	// Skipped is true when the manifest did not exist.
	Skipped bool `yaml:"skipped,omitempty"`

	// Written is true when the manifest was overwritten.
	Written bool `yaml:"written"`

	// Kept counts the entries whose file still exists.
	Kept int `yaml:"kept"`

	// Dropped lists the entries whose file is gone.
	Dropped []string `yaml:"dropped,omitempty"`

	// Changed lists kept entries whose recorded digest
	// differed from the file content.
	Changed []string `yaml:"changed,omitempty"`
}

// Refresh rebuilds the files table of the manifest at
// manifestPath so that it lists only files that still exist,
// each with its current SHA256 digest, then writes the
// manifest back. Recorded paths are relative to the manifest's
// directory. A missing manifest is a successful no-op. Any
// failure leaves the manifest untouched.
func Refresh(manifestPath string, opts Options) (Report, error) {
	const errCtx = "refreshing manifest"

	rep := Report{Manifest: manifestPath}

	if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
		slog.Info("manifest absent, nothing to do", "manifest", manifestPath)

		rep.Skipped = true

		return rep, nil
	}

	mf, err := manifest.Load(manifestPath)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", errCtx, err)
	}

	files, err := rebuild(
		filepath.Dir(manifestPath), mf.Files(), &rep,
	)
	if err != nil {
		return rep, fmt.Errorf(
			"%s: %s: %w", errCtx, manifestPath, err,
		)
	}

	mf.SetFiles(files)

	if opts.DryRun {
		slog.Info(
			"dry run, manifest not written",
			"manifest", manifestPath,
			"kept", rep.Kept,
			"dropped", len(rep.Dropped),
		)

		return rep, nil
	}

	if err := mf.Save(manifestPath); err != nil {
		return rep, fmt.Errorf("%s: %w", errCtx, err)
	}

	rep.Written = true

	slog.Info(
		"manifest refreshed",
		"manifest", manifestPath,
		"kept", rep.Kept,
		"dropped", len(rep.Dropped),
		"changed", len(rep.Changed),
	)

	return rep, nil
}

// rebuild produces a fresh files table in the order of old,
// hashing every listed file found under base and recording the
// outcome in rep.
func rebuild(
	base string,
	old *manifest.Files,
	rep *Report,
) (*manifest.Files, error) {
	const errCtx = "rebuilding files"

	files := manifest.NewFiles()

	for _, en := range old.Entries() {
		// An empty path names no file.
		if en.Path == "" {
			rep.Dropped = append(rep.Dropped, en.Path)
			continue
		}

		digest, found, err := digester.CalculateDigest(
			resolve(base, en.Path),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %s: %w", errCtx, en.Path, err,
			)
		}

		if !found {
			rep.Dropped = append(rep.Dropped, en.Path)
			continue
		}

		if digest != en.Digest {
			rep.Changed = append(rep.Changed, en.Path)
		}

		files.Set(en.Path, digest)
		rep.Kept++
	}

	return files, nil
}

// resolve maps a recorded path onto the filesystem. Relative
// paths are taken from the manifest's directory.
func resolve(base string, path string) string {
	pa := filepath.FromSlash(path)
	if filepath.IsAbs(pa) {
		return pa
	}

	return filepath.Join(base, pa)
}
