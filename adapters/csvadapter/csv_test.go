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

package csvadapter

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/magpierre/tabula/datatable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnTypes(t *testing.T, ds datatable.DataSource) []datatable.DataType {
	t.Helper()
	out := make([]datatable.DataType, ds.NumberOfColumns())
	for i := range out {
		dt, err := ds.ColumnType(i)
		require.NoError(t, err)
		out[i] = dt
	}
	return out
}

func TestDetectDelimiter(t *testing.T) {
	tests := map[string]rune{
		"a,b,c":     ',',
		"a;b;c":     ';',
		"a\tb\tc":   '\t',
		"a|b|c,d":   '|',
		"single":    ',',
		"a;b,c;d|e": ';',
	}
	for line, want := range tests {
		assert.Equal(t, want, DetectDelimiter(line), line)
	}
	assert.Equal(t, "semicolon", DelimiterName(';'))
}

func TestReadInfersTypes(t *testing.T) {
	input := "name; age ; born ;at;alarm;ok\n" +
		"Ann;34;1990-05-01;2024-01-02T10:00:00Z;07:30;true\n" +
		"Bob;;1985-12-24;;;false\n" +
		" Cid ;27.5;;2024-01-03T11:30:00Z;22:15:10;\n"
	tbl, err := Read(strings.NewReader(input), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumberOfRows())
	assert.Equal(t, []datatable.DataType{
		datatable.TypeString,
		datatable.TypeNumber,
		datatable.TypeDate,
		datatable.TypeDateTime,
		datatable.TypeTimeOfDay,
		datatable.TypeBoolean,
	}, columnTypes(t, tbl))

	id, err := tbl.ColumnID(1)
	require.NoError(t, err)
	assert.Equal(t, "age", id)

	v, err := tbl.Value(2, 0)
	require.NoError(t, err)
	assert.Equal(t, "Cid", v.StringValue())
	v, err = tbl.Value(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 27.5, v.NumberValue())
	v, err = tbl.Value(1, 1)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	v, err = tbl.Value(0, 2)
	require.NoError(t, err)
	assert.True(t, v.TimeValue().Equal(time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestReadWithoutHeadersOrInference(t *testing.T) {
	cfg := Config{Delimiter: ','}
	tbl, err := Read(strings.NewReader("1,2\n3\n"), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumberOfRows())
	assert.Equal(t, []datatable.DataType{datatable.TypeString, datatable.TypeString}, columnTypes(t, tbl))
	id, err := tbl.ColumnID(1)
	require.NoError(t, err)
	assert.Equal(t, "col_1", id)
	v, err := tbl.Value(1, 1)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestWriteRawRoundTrip(t *testing.T) {
	src := datatable.NewTable()
	for _, c := range []datatable.Column{
		{ID: "label", Type: datatable.TypeString},
		{ID: "amount", Type: datatable.TypeNumber},
		{ID: "day", Type: datatable.TypeDate},
		{ID: "clock", Type: datatable.TypeTimeOfDay},
	} {
		_, err := src.AddColumn(c)
		require.NoError(t, err)
	}
	_, err := src.AddRows([][]interface{}{
		{"a, \"quoted\"", 1234.5, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), datatable.TimeOfDay{8, 0, 0, 250}},
		{"b", -2, nil, nil},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, src, WriteConfig{Header: true, Raw: true}))
	assert.Equal(t, "label,amount,day,clock\n\"a, \"\"quoted\"\"\",1234.5,2024-02-29,08:00:00.250\nb,-2,,\n", buf.String())

	back, err := Read(&buf, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, columnTypes(t, src), columnTypes(t, back))
	for row := 0; row < src.NumberOfRows(); row++ {
		for col := 0; col < src.NumberOfColumns(); col++ {
			want, _ := src.Value(row, col)
			got, _ := back.Value(row, col)
			dt, _ := src.ColumnType(col)
			assert.Zero(t, datatable.CompareValues(dt, want, got), "row %d col %d", row, col)
		}
	}
}

func TestWriteFormatted(t *testing.T) {
	src := datatable.NewTable()
	_, err := src.AddColumn(datatable.Column{ID: "n", Type: datatable.TypeNumber})
	require.NoError(t, err)
	_, err = src.AddRow(1234.5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, src, WriteConfig{Header: true}))
	back, err := ReadFile(path, DefaultConfig())
	require.NoError(t, err)
	v, err := back.Value(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v.NumberValue())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteReportsWriterErrors(t *testing.T) {
	src := datatable.NewTable()
	_, err := src.AddColumn(datatable.Column{ID: "n", Type: datatable.TypeNumber})
	require.NoError(t, err)
	_, err = src.AddRow(1)
	require.NoError(t, err)

	for _, cfg := range []WriteConfig{{Header: true}, {Header: true, Raw: true}, {Raw: true}} {
		err := Write(failingWriter{}, src, cfg)
		assert.ErrorIs(t, err, datatable.ErrExportFailed, "%+v", cfg)
	}
}
