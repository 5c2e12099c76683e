// Command win32gen is an illustrative host for the generation facade: it
// opens a .winmd file, resolves a lookup request against it, renders the
// resulting compilation units to disk, and runs goimports over each one
// before writing it out.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen"
	"github.com/win32gen/win32gen/accumulate"
	"github.com/win32gen/win32gen/internal/config"
	"github.com/win32gen/win32gen/metadata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "win32gen:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		winmdPath   string
		outDir      string
		className   string
		namespace   string
		singleFile  bool
		name        string
		modPattern  string
		all         bool
		showSummary bool
	)

	cmd := &cobra.Command{
		Use:   "win32gen",
		Short: "Generate Go platform-invoke bindings from a Win32 metadata file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if winmdPath == "" {
				return errors.New("--winmd is required")
			}
			if name == "" && modPattern == "" && !all {
				return errors.New("one of --name, --module-pattern, or --all is required")
			}

			idx, err := metadata.Open(winmdPath)
			if err != nil {
				return fmt.Errorf("opening metadata: %w", err)
			}
			defer idx.Close()

			gen, err := win32gen.New(idx, config.Options{
				ClassName:      className,
				Namespace:      namespace,
				EmitSingleFile: singleFile,
			}, win32gen.HostContext{})
			if err != nil {
				return fmt.Errorf("constructing generator: %w", err)
			}
			defer gen.Close()

			ctx := context.Background()
			switch {
			case name != "":
				if err := gen.GenerateByName(ctx, name); err != nil {
					return fmt.Errorf("generating %q: %w", name, err)
				}
			case modPattern != "":
				if err := gen.GenerateByModulePattern(ctx, modPattern); err != nil {
					return fmt.Errorf("generating pattern %q: %w", modPattern, err)
				}
			case all:
				if err := gen.GenerateAll(ctx); err != nil {
					return fmt.Errorf("generating all: %w", err)
				}
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, f := range gen.Files() {
				src, err := renderFile(f)
				if err != nil {
					return fmt.Errorf("rendering %s: %w", f.Path, err)
				}
				finalized, err := accumulate.FinalizeImports(f.Path, src)
				if err != nil {
					return fmt.Errorf("finalizing imports for %s: %w", f.Path, err)
				}
				dest := filepath.Join(outDir, f.Path)
				if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(dest, finalized, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
			}

			if showSummary {
				sess := gen.Describe()
				fmt.Fprintf(cmd.OutOrStdout(), "%d units generated under namespace %s\n", len(sess.Units), sess.Namespace)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&winmdPath, "winmd", "", "path to the .winmd metadata file")
	cmd.Flags().StringVar(&outDir, "out", "./gen", "output directory for generated Go files")
	cmd.Flags().StringVar(&className, "class-name", "", "groups extern P/Invoke declarations (default PInvoke)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "output namespace (default windows.win32)")
	cmd.Flags().BoolVar(&singleFile, "single-file", false, "concatenate every unit into one compilation unit")
	cmd.Flags().StringVar(&name, "name", "", "generate one method or type by exact name")
	cmd.Flags().StringVar(&modPattern, "module-pattern", "", `generate every method in modules matching a "module.glob" pattern`)
	cmd.Flags().BoolVar(&all, "all", false, "generate every top-level type and method")
	cmd.Flags().BoolVar(&showSummary, "summary", false, "print a unit-count summary after generation")

	return cmd
}

// renderFile executes every SectionTemplate in a codegen.File and
// concatenates the results, the same render step the accumulator's own
// golden-file test helper uses, now pointed at an actual file on disk.
func renderFile(f *codegen.File) (src []byte, err error) {
	var buf bytes.Buffer
	for _, s := range f.SectionTemplates {
		tmpl := template.New(s.Name)
		fm := template.FuncMap{}
		if s.FuncMap != nil {
			maps.Copy(fm, s.FuncMap)
		}
		tmpl = tmpl.Funcs(fm)
		pt, perr := tmpl.Parse(s.Source)
		if perr != nil {
			return nil, perr
		}
		var sb bytes.Buffer
		if eerr := pt.Execute(&sb, s.Data); eerr != nil {
			return nil, eerr
		}
		buf.Write(sb.Bytes())
	}
	return buf.Bytes(), nil
}
