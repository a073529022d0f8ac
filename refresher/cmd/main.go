// Package main provides the refresh_checksums CLI. Run with
// no flags it rewrites ./.cargo-checksum.json so that it only
// lists files that still exist, with their current digests.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/byte4ever/cargo_checksums/refresher"
)

func run() error {
	const errCtx = "refresh_checksums"

	var (
		manifestPath string
		vendorDir    string
		summary      string
		reportPath   string
		dryRun       bool
	)

	flag.StringVar(
		&manifestPath, "manifest", refresher.DefaultManifest,
		"path to the checksum manifest to refresh",
	)

	flag.StringVar(
		&vendorDir, "vendor_dir", "",
		"refresh every manifest below this directory",
	)

	flag.BoolVar(
		&dryRun, "dry_run", false,
		"compute the refreshed manifest without writing it",
	)

	flag.StringVar(
		&summary, "summary", refresher.DefaultSummary,
		"summary line logged per manifest (empty disables)",
	)

	flag.StringVar(
		&reportPath, "report", "",
		"YAML report output path (empty disables)",
	)

	flag.Parse()

	if flag.NArg() > 0 {
		return fmt.Errorf(
			"%s: unexpected arguments %v", errCtx, flag.Args(),
		)
	}

	manifestSet := false

	flag.Visit(func(fl *flag.Flag) {
		if fl.Name == "manifest" {
			manifestSet = true
		}
	})

	if manifestSet && vendorDir != "" {
		return errors.New(
			"refresh_checksums: only one of --manifest or" +
				" --vendor_dir may be specified",
		)
	}

	opts := refresher.Options{DryRun: dryRun}

	var reports []refresher.Report

	if vendorDir != "" {
		reps, err := refresher.RefreshTree(vendorDir, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		reports = reps
	} else {
		rep, err := refresher.Refresh(manifestPath, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		reports = append(reports, rep)
	}

	if summary != "" {
		for _, rep := range reports {
			if rep.Skipped {
				continue
			}

			slog.Info(refresher.RenderSummary(summary, rep))
		}
	}

	if reportPath != "" {
		if err := writeReport(reportPath, reports); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return nil
}

func writeReport(
	path string,
	reports []refresher.Report,
) (retErr error) {
	const errCtx = "writing report file"

	fo, err := os.Create(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fo.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	if err := refresher.WriteReport(fo, reports); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
