// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/ctmgen"
	"github.com/katalvlaran/kcomplex/tablestore"
)

var (
	genOpts     = ctmgen.DefaultOptions()
	genShapes   []string
	genOut      string
	genPublish  bool
	compression string

	importAlphabet int
	importNDim     int
	importOut      string
)

var ctmCmd = &cobra.Command{
	Use:   "ctm",
	Short: "Generate, inspect and convert CTM reference tables",
}

var ctmGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Enumerate small machines and write a CTM table",
	Long: `Runs every Turing machine (--ndim 1) or turmite (--ndim 2) with the given
number of states and symbols, counts the blocks their outputs contain and
writes the resulting CTM table.

Example:
  kcomplex ctm generate --states 2 --ndim 2 --shape 2x2 --shape 3x3 --out ctm-b2-d2.kctm`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var ctmInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the shapes, coverage and value range of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var ctmImportCmd = &cobra.Command{
	Use:   "import <text-file>",
	Short: "Convert a text table (block<TAB>value per line) into .kctm",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var ctmExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Print a table as text (block<TAB>value per line)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	fs := ctmGenerateCmd.Flags()
	fs.IntVar(&genOpts.States, "states", genOpts.States, "number of machine states")
	fs.IntVar(&genOpts.Symbols, "symbols", genOpts.Symbols, "alphabet size")
	fs.IntVar(&genOpts.NDim, "ndim", genOpts.NDim, "1: Turing machines, 2: turmites")
	fs.IntVar(&genOpts.MaxSteps, "max-steps", 0, "step bound (default: busy-beaver bound + 1)")
	fs.StringArrayVar(&genShapes, "shape", nil, "block shape to tabulate, e.g. 12 or 4x4; repeatable")
	fs.BoolVar(&genOpts.Impute, "impute", genOpts.Impute, "give unproduced blocks the value max+1")
	fs.BoolVar(&genOpts.Reduced, "reduced", false, "store one value per symmetry class")
	fs.StringVar(&genOut, "out", "", "output file (default: the canonical table name)")
	fs.BoolVar(&genPublish, "publish", false, "also upload the table to the configured store")
	fs.StringVar(&compression, "compression", "", "none, lz4 or zstd (default from config)")

	ctmImportCmd.Flags().IntVar(&importAlphabet, "alphabet", 2, "alphabet size")
	ctmImportCmd.Flags().IntVar(&importNDim, "ndim", 2, "block rank")
	ctmImportCmd.Flags().StringVar(&importOut, "out", "", "output file (default: the canonical table name)")
	ctmImportCmd.Flags().StringVar(&compression, "compression", "", "none, lz4 or zstd (default from config)")

	ctmCmd.AddCommand(ctmGenerateCmd, ctmInspectCmd, ctmImportCmd, ctmExportCmd)
}

func compressionFlag() (ctm.Compression, error) {
	if compression != "" {
		return ctm.ParseCompression(compression)
	}

	return ctm.ParseCompression(cfg.Table.Compression)
}

// writeTableFile encodes t into path, or into the canonical name when path is empty.
func writeTableFile(path string, t *ctm.Table, c ctm.Compression) (string, error) {
	if path == "" {
		path = tablestore.Name(t.Alphabet(), t.NDim())
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := ctm.Encode(f, t, c); err != nil {
		f.Close()

		return "", err
	}

	return path, f.Close()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	c, err := compressionFlag()
	if err != nil {
		return err
	}
	opts := genOpts
	opts.Workers = cfg.Workers
	if len(genShapes) > 0 {
		opts.Shapes = nil
		for _, s := range genShapes {
			sh, err := ctm.ParseShape(s)
			if err != nil {
				return err
			}
			opts.Shapes = append(opts.Shapes, sh)
		}
	} else if opts.NDim == 1 {
		opts.Shapes = [][]int{{4}, {8}}
	}

	t, err := ctmgen.Generate(cmd.Context(), &opts, logger)
	if err != nil {
		return err
	}
	path, err := writeTableFile(genOut, t, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

	if !genPublish {
		return nil
	}
	st, err := openStore(cmd.Context(), cfg.Table)
	if err != nil {
		return err
	}
	name, err := tablestore.Publish(cmd.Context(), st, t, c)
	if err != nil {
		return err
	}
	logger.Info("table published", zap.String("backend", cfg.Table.Backend), zap.String("name", name))
	fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", name)

	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	t, err := readTableFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	m := t.Meta()
	fmt.Fprintf(out, "alphabet: %d\nndim: %d\nreduced: %t\n", t.Alphabet(), t.NDim(), t.Reduced())
	fmt.Fprintf(out, "source: %s\n", m.Source)
	if m.Machines > 0 {
		fmt.Fprintf(out, "machines: %d (states %d, max steps %d, halting %d)\n", m.Machines, m.States, m.MaxSteps, m.Halting)
	}
	if m.Imputed > 0 {
		fmt.Fprintf(out, "imputed: %d\n", m.Imputed)
	}
	if rec, err := t.RecommendedShape(); err == nil {
		fmt.Fprintf(out, "recommended shape: %s\n", ctm.ShapeName(rec))
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHAPE\tENTRIES\tCOVERED\tBLOCKS\tMIN\tMAX")
	for _, sh := range t.Shapes() {
		covered, total := t.Coverage(sh)
		lo, err := t.Min(sh)
		if err != nil {
			return err
		}
		hi, err := t.Max(sh)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.4f\t%.4f\n", ctm.ShapeName(sh), t.Len(sh), covered, total, lo, hi)
	}

	return tw.Flush()
}

func runImport(cmd *cobra.Command, args []string) error {
	c, err := compressionFlag()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	t, err := ctm.ReadText(f, importAlphabet, importNDim, "import:"+filepath.Base(args[0]))
	if err != nil {
		return err
	}
	path, err := writeTableFile(importOut, t, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	t, err := readTableFile(args[0])
	if err != nil {
		return err
	}

	return ctm.WriteText(cmd.OutOrStdout(), t)
}
