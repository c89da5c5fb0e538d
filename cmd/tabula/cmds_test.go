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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/magpierre/tabula/datatable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPeople(t *testing.T) *datatable.Table {
	t.Helper()
	tbl := datatable.NewTable()
	_, err := tbl.AddColumn(datatable.Column{ID: "name", Label: "Name", Type: datatable.TypeString})
	require.NoError(t, err)
	_, err = tbl.AddColumn(datatable.Column{ID: "age", Label: "Age", Type: datatable.TypeNumber})
	require.NoError(t, err)
	_, err = tbl.AddRows([][]interface{}{
		{"Ann", 34},
		{"Bob", nil},
		{"Cid", 27},
		{"Dee", 41},
	})
	require.NoError(t, err)
	return tbl
}

// testAction returns an action for the named subcommand with the given flags set.
func testAction(t *testing.T, name string, flags map[string]string) *Action {
	t.Helper()
	root := newRootCommand()
	require.NoError(t, root.PersistentFlags().Set("quiet", "true"))
	cmd, _, err := root.Find([]string{name})
	require.NoError(t, err)
	for k, v := range flags {
		require.NoError(t, cmd.Flags().Set(k, v), k)
	}
	return newAction(cmd)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]string{
		"a.csv":           "csv",
		"b.TSV":           "csv",
		"c.json":          "json",
		"d.snapshot.json": "snapshot",
		"e.parquet":       "parquet",
	} {
		got, err := formatOf(path, "")
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	got, err := formatOf("a.csv", "JSON")
	require.NoError(t, err)
	assert.Equal(t, "json", got)

	_, err = formatOf("a.xlsx", "")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseSort(t *testing.T) {
	spec := parseSort([]string{"-age", "name", "+id"})
	assert.Equal(t, datatable.SortColumns{
		datatable.Desc(datatable.ID("age")),
		datatable.Asc(datatable.ID("name")),
		datatable.Asc(datatable.ID("id")),
	}, spec)
}

func TestParseKeys(t *testing.T) {
	keys, err := parseKeys([]string{"city", "born:year", "name:LOWER"})
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Nil(t, keys[0].Modifier)
	assert.Equal(t, datatable.TypeNumber, keys[1].Type)
	assert.NotNil(t, keys[1].Modifier)
	assert.Equal(t, datatable.TypeString, keys[2].Type)

	_, err = parseKeys([]string{"city:week"})
	assert.Error(t, err)
}

func TestParseAggregations(t *testing.T) {
	aggs, err := parseAggregations([]string{"sum:amount", "max:born:latest"})
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "sum_amount", aggs[0].ID)
	assert.Equal(t, datatable.TypeNumber, aggs[0].Type)
	assert.Equal(t, "latest", aggs[1].ID)
	assert.Equal(t, datatable.TypeUnspecified, aggs[1].Type)

	_, err = parseAggregations([]string{"sum"})
	assert.Error(t, err)
	_, err = parseAggregations([]string{"median:x"})
	assert.Error(t, err)
}

func TestParseKeyPairs(t *testing.T) {
	pairs := parseKeyPairs([]string{"id=person_id", "city"})
	require.Len(t, pairs, 2)
	assert.Equal(t, datatable.ID("id"), pairs[0].Left)
	assert.Equal(t, datatable.ID("person_id"), pairs[0].Right)
	assert.Equal(t, datatable.ID("city"), pairs[1].Left)
	assert.Equal(t, datatable.ID("city"), pairs[1].Right)
}

func TestComputedColumns(t *testing.T) {
	cols, err := computedColumns([]string{"double:number=return row[\"age\"].(float64) * 2"})
	require.NoError(t, err)
	require.Len(t, cols, 1)
	cc := cols[0].(*datatable.ComputedColumn)
	assert.Equal(t, "double", cc.ID)
	assert.Equal(t, datatable.TypeNumber, cc.Type)

	_, err = computedColumns([]string{"no equals sign"})
	assert.Error(t, err)
	_, err = computedColumns([]string{"x:money=return 1"})
	assert.ErrorIs(t, err, datatable.ErrInvalidType)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, newPeople(t), "table"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"Name", "Age"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Ann", "34"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Bob"}, strings.Fields(lines[2]))
}

func TestWriteTableFormats(t *testing.T) {
	tbl := newPeople(t)

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, tbl, "csv"))
	assert.True(t, strings.HasPrefix(buf.String(), "name,age\n"), buf.String())

	buf.Reset()
	require.NoError(t, writeTable(&buf, tbl, "snapshot"))
	back, err := datatable.ParseTable(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, tbl.NumberOfRows(), back.NumberOfRows())

	assert.ErrorIs(t, writeTable(&buf, tbl, "xml"), ErrUnknownFormat)
}

func TestRunQuery(t *testing.T) {
	a := testAction(t, "query", map[string]string{
		"where":   "age > 30",
		"sort":    "-age",
		"columns": "name",
		"limit":   "1",
	})
	out, err := runQuery(a, newPeople(t))
	require.NoError(t, err)
	require.Equal(t, 1, out.NumberOfRows())
	require.Equal(t, 1, out.NumberOfColumns())
	v, err := out.Value(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Dee", v.StringValue())
}

func TestDescribeTable(t *testing.T) {
	out, err := describeTable(newPeople(t))
	require.NoError(t, err)
	require.Equal(t, 2, out.NumberOfRows())

	typ, err := out.FormattedValue(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "number", typ)
	lo, err := out.FormattedValue(1, 3)
	require.NoError(t, err)
	assert.Equal(t, "27", lo)
	hi, err := out.FormattedValue(1, 4)
	require.NoError(t, err)
	assert.Equal(t, "41", hi)
}

func TestRootCommandReportsUsageErrors(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	root.SetArgs([]string{"query"})
	assert.Error(t, root.Execute())
	assert.Contains(t, out.String(), "accepts 1 arg")

	root.SetArgs([]string{"frobnicate"})
	assert.Error(t, root.Execute())
}
