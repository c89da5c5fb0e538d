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

package parquetadapter

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/magpierre/tabula/datatable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSample(t *testing.T) *datatable.Table {
	t.Helper()
	tbl := datatable.NewTable()
	for _, c := range []datatable.Column{
		{ID: "city", Label: "City", Type: datatable.TypeString},
		{ID: "pop", Label: "Population", Type: datatable.TypeNumber, Pattern: "#,##0"},
		{ID: "founded", Label: "Founded", Type: datatable.TypeDate},
	} {
		_, err := tbl.AddColumn(c)
		require.NoError(t, err)
	}
	_, err := tbl.AddRows([][]interface{}{
		{"Uppsala", 177074, time.Date(1286, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"Kiruna", nil, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{nil, 10, nil},
	})
	require.NoError(t, err)
	return tbl
}

func TestRoundTrip(t *testing.T) {
	for name, codec := range map[string]compress.Compression{
		"snappy": compress.Codecs.Snappy,
		"none":   compress.Codecs.Uncompressed,
		"zstd":   compress.Codecs.Zstd,
	} {
		t.Run(name, func(t *testing.T) {
			tbl := newSample(t)
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tbl, Config{Compression: codec, ChunkSize: 2}))

			back, err := Read(context.Background(), bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			require.Equal(t, 3, back.NumberOfRows())

			label, err := back.ColumnLabel(1)
			require.NoError(t, err)
			assert.Equal(t, "Population", label)
			pattern, err := back.ColumnPattern(1)
			require.NoError(t, err)
			assert.Equal(t, "#,##0", pattern)
			dt, err := back.ColumnType(2)
			require.NoError(t, err)
			assert.Equal(t, datatable.TypeDate, dt)

			v, err := back.Value(0, 1)
			require.NoError(t, err)
			assert.Equal(t, 177074.0, v.NumberValue())
			v, err = back.Value(1, 1)
			require.NoError(t, err)
			assert.True(t, v.IsNull())
			v, err = back.Value(1, 2)
			require.NoError(t, err)
			assert.Equal(t, 1900, v.TimeValue().Year())
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.parquet")
	require.NoError(t, WriteFile(path, newSample(t), DefaultConfig()))
	back, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, back.NumberOfRows())
	assert.Equal(t, 3, back.NumberOfColumns())
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Zstd, c)
	_, err = ParseCompression("rar")
	assert.Error(t, err)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(context.Background(), bytes.NewReader([]byte("not parquet at all")))
	assert.Error(t, err)
}
