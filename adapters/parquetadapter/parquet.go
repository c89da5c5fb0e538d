// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parquetadapter reads and writes tables as Parquet files through
// Apache Arrow.
package parquetadapter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/go-logr/logr"
	"github.com/magpierre/tabula/adapters/arrowadapter"
	"github.com/magpierre/tabula/datatable"
)

// Config controls how tables are written.
type Config struct {
	// Compression is the column chunk codec.
	Compression compress.Compression
	// ChunkSize is the maximum number of rows per row group.
	ChunkSize int64
}

// DefaultConfig returns Snappy compression with 64Ki row groups.
func DefaultConfig() Config {
	return Config{Compression: compress.Codecs.Snappy, ChunkSize: 64 * 1024}
}

var codecs = map[string]compress.Compression{
	"none":         compress.Codecs.Uncompressed,
	"uncompressed": compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"brotli":       compress.Codecs.Brotli,
	"zstd":         compress.Codecs.Zstd,
	"lz4":          compress.Codecs.Lz4Raw,
}

// ParseCompression maps a codec name such as "snappy" or "zstd" to its
// compression.
func ParseCompression(name string) (compress.Compression, error) {
	c, ok := codecs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return compress.Codecs.Uncompressed, fmt.Errorf("unknown compression %q", name)
	}
	return c, nil
}

// Write encodes ds as a Parquet file. The Arrow schema, including the
// column metadata written by arrowadapter, is stored in the file.
func Write(w io.Writer, ds datatable.DataSource, cfg Config) error {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	tbl, err := arrowadapter.ToTable(ds, memory.NewGoAllocator())
	if err != nil {
		return err
	}
	defer tbl.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(cfg.Compression))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	writer, err := pqarrow.NewFileWriter(tbl.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("%w: failed to create parquet writer: %w", datatable.ErrExportFailed, err)
	}
	if err := writer.WriteTable(tbl, cfg.ChunkSize); err != nil {
		writer.Close()
		return fmt.Errorf("%w: failed to write table to parquet: %w", datatable.ErrExportFailed, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: failed to close parquet writer: %w", datatable.ErrExportFailed, err)
	}
	logger().V(1).Info("wrote parquet", "rows", tbl.NumRows(), "codec", cfg.Compression)
	return nil
}

// WriteFile writes ds to a new Parquet file at path.
func WriteFile(path string, ds datatable.DataSource, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()
	return Write(f, ds, cfg)
}

// Read decodes a Parquet file into a new table.
func Read(ctx context.Context, r parquet.ReaderAtSeeker) (*datatable.Table, error) {
	pf, err := file.NewParquetReader(r, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	at, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer at.Release()
	return arrowadapter.FromTable(at)
}

// ReadFile reads the Parquet file at path.
func ReadFile(ctx context.Context, path string) (*datatable.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()
	return Read(ctx, f)
}

func logger() logr.Logger {
	return datatable.Logger().WithName("parquetadapter")
}
