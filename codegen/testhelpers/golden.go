// Package testhelpers renders the SectionTemplates of a generated
// codegen.File into source text and compares it against a golden fixture
// on disk, the same render-then-diff pattern used throughout this
// generator's own test suite.
package testhelpers

import (
	"bytes"
	"flag"
	"maps"
	"os"
	"path/filepath"
	"testing"
	"text/template"

	"github.com/stretchr/testify/require"
	gcodegen "goa.design/goa/v3/codegen"
)

// update is set via "-update" to regenerate golden fixtures from current
// output rather than compare against them.
var update = flag.Bool("update", false, "update golden files")

// FileContent locates a generated file by path (slash-normalized) and
// returns the concatenated, rendered contents of its SectionTemplates.
func FileContent(t *testing.T, files []*gcodegen.File, wantPath string) string {
	t.Helper()
	f := FindFile(files, wantPath)
	require.NotNilf(t, f, "generated file not found: %s", wantPath)
	var buf bytes.Buffer
	for _, s := range f.SectionTemplates {
		tmpl := template.New(s.Name)
		fm := template.FuncMap{
			"comment": gcodegen.Comment,
		}
		if s.FuncMap != nil {
			maps.Copy(fm, s.FuncMap)
		}
		tmpl = tmpl.Funcs(fm)
		pt, err := tmpl.Parse(s.Source)
		require.NoErrorf(t, err, "parse section %s", s.Name)
		var sb bytes.Buffer
		require.NoErrorf(t, pt.Execute(&sb, s.Data), "execute section %s", s.Name)
		buf.Write(sb.Bytes())
	}
	return buf.String()
}

// FileExists reports whether a generated file at wantPath is present.
func FileExists(files []*gcodegen.File, wantPath string) bool {
	return FindFile(files, wantPath) != nil
}

// FindFile locates a generated file by path (slash-normalized).
func FindFile(files []*gcodegen.File, wantPath string) *gcodegen.File {
	normWant := filepath.ToSlash(wantPath)
	for _, f := range files {
		if filepath.ToSlash(f.Path) == normWant {
			return f
		}
	}
	return nil
}

// AssertGoldenGo compares content with the golden fixture at
// testdata/golden/<scenario>/<name>, rewriting the fixture in place when
// run with -update.
func AssertGoldenGo(t *testing.T, scenario, name, content string) {
	t.Helper()
	p := filepath.Join("testdata", "golden", scenario, name)
	if *update {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return
	}
	want, err := os.ReadFile(p)
	require.NoErrorf(t, err, "reading golden file %s (run with -update to create it)", p)
	require.Equal(t, string(want), content)
}
