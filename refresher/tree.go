package refresher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
)

// RefreshTree refreshes every manifest named ManifestName below
// root, in lexical walk order, as laid out by cargo vendor. The
// first failure stops the walk; manifests refreshed before it
// stay written.
func RefreshTree(root string, opts Options) ([]Report, error) {
	const errCtx = "refreshing manifest tree"

	var reports []Report

	err := filepath.WalkDir(
		root,
		func(pa string, de fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if de.IsDir() || de.Name() != ManifestName {
				return nil
			}

			if !de.Type().IsRegular() {
				slog.Warn("skipping non-regular manifest", "path", pa)
				return nil
			}

			rep, err := Refresh(pa, opts)
			if err != nil {
				return err
			}

			reports = append(reports, rep)

			return nil
		},
	)
	if err != nil {
		return reports, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"manifest tree refreshed",
		"root", root,
		"manifests", len(reports),
	)

	return reports, nil
}
