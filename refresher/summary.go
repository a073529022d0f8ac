package refresher

import (
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/valyala/fasttemplate"
)

// DefaultSummary is the summary format used by the CLI.
const DefaultSummary = "{manifest}: {kept} kept, {dropped} dropped, " +
	"{changed} changed"

// RenderSummary substitutes {manifest}, {kept}, {dropped},
// {changed} and {written} placeholders in format with the values
// from rep. Unknown placeholders are preserved as-is.
func RenderSummary(format string, rep Report) string {
	vars := map[string]interface{}{
		"manifest": rep.Manifest,
		"kept":     strconv.Itoa(rep.Kept),
		"dropped":  strconv.Itoa(len(rep.Dropped)),
		"changed":  strconv.Itoa(len(rep.Changed)),
		"written":  strconv.FormatBool(rep.Written),
	}

	return fasttemplate.ExecuteStringStd(format, "{", "}", vars)
}

// reportDoc is the top-level YAML report document.
type reportDoc struct {
	Manifests []Report `yaml:"manifests"`
}

// WriteReport writes reports to w as a YAML document.
func WriteReport(w io.Writer, reports []Report) error {
	const errCtx = "writing report"

	if reports == nil {
		reports = []Report{}
	}

	buf, err := yaml.Marshal(reportDoc{Manifests: reports})
	if err != nil {
		return fmt.Errorf("%s: marshaling: %w", errCtx, err)
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
