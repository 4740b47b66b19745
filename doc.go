// Package kcomplex estimates the algorithmic (Kolmogorov) complexity of
// small 1-D and 2-D symbol arrays with the Block Decomposition Method.
//
// 🚀 What is kcomplex?
//
//	A library plus a CLI that brings together:
//		• Arrays: validated 1-D/2-D symbol arrays with integer block keys
//		• Partitions: ignore, strict, recursive and correlated block tilings
//		• CTM tables: immutable reference values, symmetry-reduced storage,
//		  compressed binary codec and text import/export
//		• Generation: CTM tables from exhaustive Turing machine and turmite runs
//		• Estimation: BDM, normalized BDM, block entropy, batch runs
//		• Perturbation: per-element contribution to the BDM
//		• Table stores: local directory, S3 and MinIO backends
//
// ✨ Why BDM?
//
//   - Compression-based estimates break down on short strings; CTM values
//     come from the output frequencies of small machines instead.
//   - BDM extends CTM to larger objects by adding the CTM of each distinct
//     block and log2 of its multiplicity.
//
// Packages:
//
//	array/         symbol arrays, keys, windows, text parsing
//	partition/     block decomposition strategies
//	ctm/           reference tables, builder, codec
//	ctmgen/        table generator
//	bdm/           the Estimator
//	perturbation/  perturbation experiments
//	tablestore/    table blob sources and the shared Loader
//	config/        YAML / HCL configuration
//	cmd/kcomplex/  command-line interface
//
// Quick example (the 6×6 alternating matrix):
//
//	0 1 0 1 0 1
//	1 0 1 0 1 0
//	0 1 0 1 0 1      est, _ := bdm.New(table, bdm.WithShape(4, 4))
//	1 0 1 0 1 0      x, _ := est.InputRows(rows)
//	0 1 0 1 0 1      raw, _ := est.BDM(x)
//	1 0 1 0 1 0      norm, _ := est.NBDM(x)
//
//	go install github.com/katalvlaran/kcomplex/cmd/kcomplex@latest
package kcomplex
