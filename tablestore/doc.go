// SPDX-License-Identifier: MIT

// Package tablestore locates serialized reference tables and loads each of
// them once per process.
//
// A Source opens a table blob by name; Local, s3.Store and minio.Store are
// the shipped backends. Blobs are named by configuration (Name), e.g.
// "ctm-b2-d2.kctm" for binary 2-D tables.
//
// Loader decodes a blob into a *ctm.Table the first time it is requested and
// hands the same immutable table to every later caller. Concurrent first
// requests are collapsed into one read; failures are not cached.
package tablestore
