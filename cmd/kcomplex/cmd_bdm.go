// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/kcomplex/array"
	"github.com/katalvlaran/kcomplex/bdm"
	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/partition"
	"github.com/katalvlaran/kcomplex/perturbation"
)

// estimatorFlags override the estimator section of the configuration.
type estimatorFlags struct {
	ndim      int
	alphabet  int
	shape     string
	partition string
	shift     int
	minSize   int
}

var (
	bdmFlags     estimatorFlags
	entFlags     estimatorFlags
	perturbFlags estimatorFlags
	flips        []string
)

var bdmCmd = &cobra.Command{
	Use:   "bdm [file]",
	Short: "Print the BDM and normalized BDM of an array",
	Long: `Reads an array from file (or stdin) and prints its Block Decomposition
Method complexity and the normalized value in [0, 1].

Input holds one row per line; symbols are separated by spaces or commas or
written packed ("010101"). Lines starting with '#' are ignored.

Example:
  kcomplex bdm --shape 4x4 matrix.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBDM,
}

var entCmd = &cobra.Command{
	Use:   "ent [file]",
	Short: "Print the block entropy and normalized block entropy of an array",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEntropy,
}

var perturbCmd = &cobra.Command{
	Use:   "perturb [file]",
	Short: "Print how much each element contributes to the BDM",
	Long: `Prints, for every element, the BDM change caused by changing that element
alone, laid out like the input. --flip applies changes first (the element
takes the next symbol) and reports each delta.

Example:
  kcomplex perturb --flip 0,0 --flip 2,3 matrix.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPerturb,
}

func init() {
	addEstimatorFlags(bdmCmd, &bdmFlags)
	addEstimatorFlags(entCmd, &entFlags)
	addEstimatorFlags(perturbCmd, &perturbFlags)
	perturbCmd.Flags().StringArrayVar(&flips, "flip", nil, "element index (\"i\" or \"i,j\") to change before mapping; repeatable")
}

func addEstimatorFlags(cmd *cobra.Command, f *estimatorFlags) {
	fs := cmd.Flags()
	fs.IntVar(&f.ndim, "ndim", 0, "array rank, 1 or 2 (default from config)")
	fs.IntVar(&f.alphabet, "alphabet", 0, "alphabet size (default from config)")
	fs.StringVar(&f.shape, "shape", "", "block shape, e.g. 12 or 4x4 (default: the table's recommended shape)")
	fs.StringVar(&f.partition, "partition", "", "ignore, strict, recursive or correlated (default from config)")
	fs.IntVar(&f.shift, "shift", 0, "window step for the correlated partition")
	fs.IntVar(&f.minSize, "min-size", 0, "smallest block side for the recursive partition")
}

// resolve merges the flags over the configuration.
func (f *estimatorFlags) resolve() (ndim, alphabet int, shape []int, name string, shift, minSize int, err error) {
	e := cfg.Estimator
	ndim, alphabet, shape, name, shift, minSize = e.NDim, e.Alphabet, e.Shape, e.Partition, e.Shift, e.MinSize
	if f.ndim != 0 {
		ndim = f.ndim
		if len(e.Shape) != ndim {
			shape = nil
		}
	}
	if f.alphabet != 0 {
		alphabet = f.alphabet
	}
	if f.shape != "" {
		if shape, err = ctm.ParseShape(f.shape); err != nil {
			return
		}
	}
	if f.partition != "" {
		name = f.partition
	}
	if f.shift != 0 {
		shift = f.shift
	}
	if f.minSize != 0 {
		minSize = f.minSize
	}

	return
}

// setup loads the table, builds the estimator and reads the input array.
func setup(cmd *cobra.Command, f *estimatorFlags, args []string) (*bdm.Estimator, *array.Array, error) {
	ndim, alphabet, shape, name, shift, minSize, err := f.resolve()
	if err != nil {
		return nil, nil, err
	}
	table, err := loadTable(cmd.Context(), alphabet, ndim)
	if err != nil {
		return nil, nil, err
	}
	// without --ndim, a table picked by file or name decides the rank
	if f.ndim == 0 && table.NDim() != ndim {
		ndim = table.NDim()
		if f.shape == "" {
			shape = nil
		}
	}
	if len(shape) == 0 {
		if shape, err = table.RecommendedShape(); err != nil {
			return nil, nil, err
		}
	}
	param := minSize
	if name == partition.NameCorrelated {
		param = shift
	}
	part, err := partition.ByName(name, param, shape...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", bdm.ErrConfiguration, err)
	}
	est, err := bdm.New(table,
		bdm.WithPartition(part),
		bdm.WithLogger(logger),
		bdm.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, nil, err
	}

	a, err := readArray(cmd, args, ndim, table.Alphabet())
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("input read",
		zap.Ints("shape", a.Shape()),
		zap.String("partition", part.Name()),
		zap.String("block", ctm.ShapeName(part.Shape())))

	return est, a, nil
}

// readArray parses the array from the file argument or stdin.
func readArray(cmd *cobra.Command, args []string, ndim, alphabet int) (*array.Array, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return array.Parse(r, ndim, alphabet)
}

func runBDM(cmd *cobra.Command, args []string) error {
	est, a, err := setup(cmd, &bdmFlags, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	n, err := est.NBDMDetail(a)
	if errors.Is(err, bdm.ErrNormalization) {
		logger.Warn("normalization undefined", zap.Error(err))
		raw, err := est.BDM(a)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "BDM: %v\n", raw)
		fmt.Fprintln(out, "Normalized BDM: undefined")

		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "BDM: %v\n", n.Raw)
	fmt.Fprintf(out, "Normalized BDM: %v\n", n.Value)

	return nil
}

func runEntropy(cmd *cobra.Command, args []string) error {
	est, a, err := setup(cmd, &entFlags, args)
	if err != nil {
		return err
	}
	h, err := est.Entropy(a)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Entropy: %v\n", h)
	nh, err := est.NEntropy(a)
	switch {
	case errors.Is(err, bdm.ErrNormalization):
		fmt.Fprintln(out, "Normalized entropy: undefined")
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "Normalized entropy: %v\n", nh)
	}

	return nil
}

func runPerturb(cmd *cobra.Command, args []string) error {
	est, a, err := setup(cmd, &perturbFlags, args)
	if err != nil {
		return err
	}
	exp, err := perturbation.New(est, a)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, f := range flips {
		idx, err := parseIndex(f)
		if err != nil {
			return err
		}
		d, err := exp.Perturb(idx, -1)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "flip %v: %+.4f\n", idx, d)
	}
	v, err := exp.Value()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "BDM: %v\n", v)

	impact, err := exp.ImpactMap(cmd.Context())
	if err != nil {
		return err
	}
	shape := a.Shape()
	width := shape[len(shape)-1]
	var sb strings.Builder
	for off, d := range impact {
		if off%width != 0 {
			sb.WriteByte('\t')
		}
		sb.WriteString(strconv.FormatFloat(d, 'f', 4, 64))
		if off%width == width-1 {
			sb.WriteByte('\n')
		}
	}
	_, err = io.WriteString(out, sb.String())

	return err
}

// parseIndex reads "i" or "i,j".
func parseIndex(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	idx := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("index %q: %w", s, perturbation.ErrIndex)
		}
		idx[i] = v
	}

	return idx, nil
}
