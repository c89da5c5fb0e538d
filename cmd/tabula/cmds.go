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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/magpierre/tabula/adapters/csvadapter"
	"github.com/magpierre/tabula/adapters/deltasharing"
	"github.com/magpierre/tabula/adapters/jsonadapter"
	"github.com/magpierre/tabula/adapters/parquetadapter"
	"github.com/magpierre/tabula/datatable"
	"github.com/magpierre/tabula/filter"
	"github.com/magpierre/tabula/group"
	"github.com/magpierre/tabula/internal/logging"
	"github.com/magpierre/tabula/join"
	"github.com/magpierre/tabula/script"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrUnknownFormat is returned for a file format tabula cannot read or write.
var ErrUnknownFormat = errors.New("unknown format")

func fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}

func setupLogging(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetInt("v")
	dev, _ := cmd.Flags().GetBool("dev")
	datatable.SetLogger(logging.New(logging.Config{Level: level, Development: dev, Output: os.Stderr}))
}

// Represents the state used when processing a command.
type Action struct {
	cmd   *cobra.Command
	quiet bool
	start time.Time
}

func newAction(cmd *cobra.Command) *Action {
	result := &Action{cmd: cmd, start: time.Now()}
	result.quiet = result.getBool("quiet")
	return result
}

// Context returns the command context, or a background context.
func (a *Action) Context() context.Context {
	if ctx := a.cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *Action) getBool(name string) bool {
	result, _ := a.cmd.Flags().GetBool(name)
	return result
}

func (a *Action) getInt(name string) int {
	result, _ := a.cmd.Flags().GetInt(name)
	return result
}

func (a *Action) getRune(name string) rune {
	s, _ := a.cmd.Flags().GetString(name)
	if s == "" {
		return rune(0)
	}
	if s == `\t` {
		return '\t'
	}
	return []rune(s)[0]
}

func (a *Action) getString(name string) string {
	result, _ := a.cmd.Flags().GetString(name)
	return result
}

func (a *Action) getStringSlice(name string) []string {
	result, _ := a.cmd.Flags().GetStringSlice(name)
	return result
}

func (a *Action) getStringArray(name string) []string {
	result, _ := a.cmd.Flags().GetStringArray(name)
	return result
}

// Status output goes to stderr so results on stdout stay machine readable.
func (a *Action) Append(format string, args ...interface{}) *Action {
	if a.quiet {
		return a
	}
	fmt.Fprintf(os.Stderr, format, args...)
	return a
}

// Show the action banner message.
func (a *Action) Start(format string, args ...interface{}) *Action {
	if a.quiet {
		return a
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s .. ", msg)
	return a
}

// Update the action banner, show the result and exit.
func (a *Action) Exit(result interface{}, err error) {
	delta := time.Since(a.start).Seconds()
	if err == nil {
		err = a.showValue(os.Stdout, result)
	}
	if err != nil {
		a.Append("(%.1fs)\n", delta)
		fatal("%s", strings.TrimRight(err.Error(), "\r\n"))
	}
	a.Append("Ok (%.1fs)\n", delta)
	os.Exit(0)
}

func (a *Action) showValue(w io.Writer, v interface{}) error {
	switch vv := v.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, strings.TrimRight(vv, "\r\n"))
		return err
	case datatable.DataSource:
		return writeTable(w, vv, a.getString("format"))
	default:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	}
}

// formatOf returns override, or the format implied by the file extension.
func formatOf(path, override string) (string, error) {
	if override != "" {
		return strings.ToLower(override), nil
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".snapshot.json") {
		return "snapshot", nil
	}
	switch filepath.Ext(lower) {
	case ".csv", ".tsv", ".txt":
		return "csv", nil
	case ".json":
		return "json", nil
	case ".parquet", ".pq":
		return "parquet", nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "cannot tell the format of %s", path)
}

func (a *Action) csvConfig() csvadapter.Config {
	cfg := csvadapter.DefaultConfig()
	cfg.Delimiter = a.getRune("delimiter")
	cfg.HasHeaders = !a.getBool("no-header")
	return cfg
}

func (a *Action) readTable(path string) (*datatable.Table, error) {
	format, err := formatOf(path, a.getString("from"))
	if err != nil {
		return nil, err
	}
	var tbl *datatable.Table
	switch format {
	case "csv":
		tbl, err = csvadapter.ReadFile(path, a.csvConfig())
	case "json":
		tbl, err = jsonadapter.ReadFile(path)
	case "parquet":
		tbl, err = parquetadapter.ReadFile(a.Context(), path)
	case "snapshot":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			tbl, err = datatable.ParseTable(data)
		}
	default:
		return nil, errors.Wrap(ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return tbl, nil
}

// writeTable renders ds on w in one of the output formats.
func writeTable(w io.Writer, ds datatable.DataSource, format string) error {
	switch format {
	case "", "table":
		return writeText(w, ds)
	case "csv":
		return csvadapter.Write(w, ds, csvadapter.WriteConfig{Header: true})
	case "json":
		return jsonadapter.Write(w, ds)
	case "snapshot":
		snap, err := ds.Snapshot()
		if err != nil {
			return err
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "parquet":
		return parquetadapter.Write(w, ds, parquetadapter.DefaultConfig())
	default:
		return errors.Wrap(ErrUnknownFormat, format)
	}
}

// writeText prints labels and formatted values as aligned columns.
func writeText(w io.Writer, ds datatable.DataSource) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fields := make([]string, ds.NumberOfColumns())
	for col := range fields {
		label, err := ds.ColumnLabel(col)
		if err != nil {
			return err
		}
		if label == "" {
			label, _ = ds.ColumnID(col)
		}
		fields[col] = label
	}
	fmt.Fprintln(tw, strings.Join(fields, "\t"))
	for row := 0; row < ds.NumberOfRows(); row++ {
		for col := range fields {
			f, err := ds.FormattedValue(row, col)
			if err != nil {
				return err
			}
			fields[col] = f
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t"))
	}
	return tw.Flush()
}

func convert(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Converting %s to %s", args[0], args[1])
	tbl, err := action.readTable(args[0])
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(nil, action.writeFile(args[1], tbl))
}

func (a *Action) writeFile(path string, ds datatable.DataSource) error {
	format, err := formatOf(path, a.getString("to"))
	if err != nil {
		return err
	}
	switch format {
	case "parquet":
		cfg := parquetadapter.DefaultConfig()
		if name := a.getString("compression"); name != "" {
			if cfg.Compression, err = parquetadapter.ParseCompression(name); err != nil {
				return err
			}
		}
		err = parquetadapter.WriteFile(path, ds, cfg)
	case "csv":
		err = csvadapter.WriteFile(path, ds, csvadapter.WriteConfig{Header: true, Raw: true})
	default:
		var f *os.File
		if f, err = os.Create(path); err != nil {
			return errors.Wrapf(err, "creating %s", path)
		}
		defer f.Close()
		err = writeTable(f, ds, format)
	}
	return errors.Wrapf(err, "writing %s", path)
}

// parseSort turns "col" and "-col" items into a sort spec.
func parseSort(items []string) datatable.SortColumns {
	spec := make(datatable.SortColumns, 0, len(items))
	for _, item := range items {
		if strings.HasPrefix(item, "-") {
			spec = append(spec, datatable.Desc(datatable.ID(item[1:])))
		} else {
			spec = append(spec, datatable.Asc(datatable.ID(strings.TrimPrefix(item, "+"))))
		}
	}
	return spec
}

// computedColumns compiles "id[:type]=script" items. Columns without a type
// are strings.
func computedColumns(items []string) ([]datatable.ViewColumn, error) {
	cols := make([]datatable.ViewColumn, 0, len(items))
	for _, item := range items {
		head, src, ok := strings.Cut(item, "=")
		id, typeName, _ := strings.Cut(strings.TrimSpace(head), ":")
		if !ok || id == "" {
			return nil, errors.Errorf("computed column %q must have the form id[:type]=script", item)
		}
		dt := datatable.TypeString
		if typeName != "" {
			var err error
			if dt, err = datatable.ParseDataType(typeName); err != nil {
				return nil, errors.Wrapf(err, "computed column %s", id)
			}
		}
		calc, err := script.Compile(src)
		if err != nil {
			return nil, errors.Wrapf(err, "computed column %s", id)
		}
		cols = append(cols, &datatable.ComputedColumn{Calc: calc, Type: dt, ID: id, Label: id})
	}
	return cols, nil
}

func runQuery(a *Action, src datatable.DataSource) (datatable.DataSource, error) {
	computed, err := computedColumns(a.getStringArray("compute"))
	if err != nil {
		return nil, err
	}
	if len(computed) > 0 {
		v, err := datatable.NewView(src)
		if err != nil {
			return nil, err
		}
		cols := make([]datatable.ViewColumn, 0, src.NumberOfColumns()+len(computed))
		for col := 0; col < src.NumberOfColumns(); col++ {
			cols = append(cols, datatable.Index(col))
		}
		if err := v.SetColumns(append(cols, computed...)...); err != nil {
			return nil, err
		}
		src = v
	}

	filtered, err := filter.Select(src, &filter.QueryOptions{Query: a.getString("where")})
	if err != nil {
		return nil, err
	}
	var shaped datatable.DataSource = filtered
	if order := a.getStringSlice("sort"); len(order) > 0 {
		rows, err := filtered.SortedRows(parseSort(order))
		if err != nil {
			return nil, err
		}
		sorted, err := datatable.NewView(filtered)
		if err != nil {
			return nil, err
		}
		if err := sorted.SetRows(rows...); err != nil {
			return nil, err
		}
		shaped = sorted
	}
	return filter.Select(shaped, &filter.QueryOptions{
		SelectedColumns: a.getStringSlice("columns"),
		Limit:           a.getInt("limit"),
	})
}

func query(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Querying %s", args[0])
	tbl, err := action.readTable(args[0])
	if err != nil {
		action.Exit(nil, err)
	}
	result, err := runQuery(action, tbl)
	action.Exit(result, err)
}

// parseKeys reads "col" or "col:modifier" items.
func parseKeys(items []string) ([]group.Key, error) {
	keys := make([]group.Key, 0, len(items))
	for _, item := range items {
		col, mod, _ := strings.Cut(item, ":")
		ref := datatable.ID(col)
		switch strings.ToLower(mod) {
		case "":
			keys = append(keys, group.Key{Column: ref})
		case "month":
			keys = append(keys, group.ByMonth(ref))
		case "year":
			keys = append(keys, group.ByYear(ref))
		case "lower":
			keys = append(keys, group.Key{Column: ref, Modifier: group.Lower, Type: datatable.TypeString})
		default:
			return nil, errors.Errorf("unknown key modifier %q", mod)
		}
	}
	return keys, nil
}

// parseAggregations reads "fn:col" or "fn:col:id" items.
func parseAggregations(items []string) ([]group.Aggregation, error) {
	aggs := make([]group.Aggregation, 0, len(items))
	for _, item := range items {
		parts := strings.SplitN(item, ":", 3)
		if len(parts) < 2 {
			return nil, errors.Errorf("aggregation %q must have the form fn:column[:id]", item)
		}
		fn, err := group.AggregateByName(parts[0])
		if err != nil {
			return nil, err
		}
		agg := group.Aggregation{Column: datatable.ID(parts[1]), Aggregate: fn}
		switch strings.ToLower(parts[0]) {
		case "sum", "count", "avg", "average":
			agg.Type = datatable.TypeNumber
		}
		agg.ID = strings.ToLower(parts[0]) + "_" + parts[1]
		if len(parts) == 3 {
			agg.ID = parts[2]
		}
		agg.Label = agg.ID
		aggs = append(aggs, agg)
	}
	return aggs, nil
}

func groupBy(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Grouping %s", args[0])
	tbl, err := action.readTable(args[0])
	if err != nil {
		action.Exit(nil, err)
	}
	keys, err := parseKeys(action.getStringSlice("by"))
	if err != nil {
		action.Exit(nil, err)
	}
	aggs, err := parseAggregations(action.getStringSlice("agg"))
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(group.Group(tbl, keys, aggs))
}

// parseKeyPairs reads "left=right" or "col" items.
func parseKeyPairs(items []string) []join.KeyPair {
	pairs := make([]join.KeyPair, 0, len(items))
	for _, item := range items {
		l, r, ok := strings.Cut(item, "=")
		if !ok {
			r = l
		}
		pairs = append(pairs, join.KeyPair{Left: datatable.ID(l), Right: datatable.ID(r)})
	}
	return pairs
}

func refs(items []string) []datatable.ColumnRef {
	out := make([]datatable.ColumnRef, len(items))
	for i, item := range items {
		out[i] = datatable.ID(item)
	}
	return out
}

func joinTables(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Joining %s and %s", args[0], args[1])
	left, err := action.readTable(args[0])
	if err != nil {
		action.Exit(nil, err)
	}
	right, err := action.readTable(args[1])
	if err != nil {
		action.Exit(nil, err)
	}
	kind, err := join.ParseKind(action.getString("kind"))
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(join.Join(left, right, kind,
		parseKeyPairs(action.getStringSlice("on")),
		refs(action.getStringSlice("left-columns")),
		refs(action.getStringSlice("right-columns"))))
}

// describeTable lists every column of ds with its type and value range.
func describeTable(ds datatable.DataSource) (*datatable.Table, error) {
	out := datatable.NewTable()
	for _, c := range []datatable.Column{
		{ID: "id", Label: "Id"},
		{ID: "label", Label: "Label"},
		{ID: "type", Label: "Type"},
		{ID: "min", Label: "Min"},
		{ID: "max", Label: "Max"},
		{ID: "distinct", Label: "Distinct", Type: datatable.TypeNumber},
	} {
		if _, err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	for col := 0; col < ds.NumberOfColumns(); col++ {
		id, _ := ds.ColumnID(col)
		label, _ := ds.ColumnLabel(col)
		dt, err := ds.ColumnType(col)
		if err != nil {
			return nil, err
		}
		row := []interface{}{id, label, dt.String(), nil, nil, nil}
		if dt != datatable.TypeFunction {
			rng, err := ds.ColumnRange(datatable.Index(col))
			if err != nil {
				return nil, err
			}
			row[3] = datatable.FormatValue(dt, rng.Min)
			row[4] = datatable.FormatValue(dt, rng.Max)
			distinct, err := ds.DistinctValues(datatable.Index(col))
			if err != nil {
				return nil, err
			}
			row[5] = len(distinct)
		}
		if _, err := out.AddRow(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func describe(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.Start("Describing %s", args[0])
	tbl, err := action.readTable(args[0])
	if err != nil {
		action.Exit(nil, err)
	}
	action.Append("%d rows\n", tbl.NumberOfRows())
	action.Exit(describeTable(tbl))
}

func share(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	profile, err := os.ReadFile(args[0])
	if err != nil {
		action.Exit(nil, errors.Wrapf(err, "reading profile %s", args[0]))
	}
	if !deltasharing.IsProfile(profile) {
		action.Exit(nil, errors.Errorf("%s is not a Delta Sharing profile", args[0]))
	}
	opts := deltasharing.Options{
		TimeoutSeconds: action.getInt("timeout"),
		FileID:         action.getString("file-id"),
		Query: &filter.QueryOptions{
			SelectedColumns: action.getStringSlice("columns"),
			Query:           action.getString("where"),
			Limit:           action.getInt("limit"),
		},
	}
	client, err := deltasharing.NewClient(string(profile), opts)
	if err != nil {
		action.Exit(nil, err)
	}
	if len(args) == 1 {
		action.Start("Listing shared tables")
		tables, err := client.ListTables(action.Context())
		if err != nil {
			action.Exit(nil, err)
		}
		names := make([]string, len(tables))
		for i, t := range tables {
			names[i] = t.Share + "." + t.Schema + "." + t.Name
		}
		action.Exit(strings.Join(names, "\n"), nil)
	}
	action.Start("Loading %s", args[1])
	table, err := client.FindTable(action.Context(), args[1])
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(client.Load(action.Context(), table))
}

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "convert input output",
		Short: "Convert a table between csv, json, parquet and snapshot files",
		Args:  cobra.ExactArgs(2),
		Run:   convert}
	cmd.Flags().String("from", "", "input format (default: from extension)")
	cmd.Flags().String("to", "", "output format (default: from extension)")
	cmd.Flags().String("compression", "snappy", "parquet compression codec")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "query file",
		Short: "Filter, sort and project the rows of a table",
		Args:  cobra.ExactArgs(1),
		Run:   query}
	cmd.Flags().String("where", "", "row filter, e.g. 'age >= 30 AND name ~ an'")
	cmd.Flags().StringSlice("columns", nil, "columns to show")
	cmd.Flags().StringSlice("sort", nil, "sort columns, prefix with '-' for descending")
	cmd.Flags().Int("limit", 0, "maximum number of rows")
	cmd.Flags().StringArray("compute", nil, "computed column 'id[:type]=Go function body'")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "group file",
		Short: "Group rows and aggregate columns",
		Args:  cobra.ExactArgs(1),
		Run:   groupBy}
	cmd.Flags().StringSlice("by", nil, "key columns, optionally 'col:month', 'col:year' or 'col:lower'")
	cmd.Flags().StringSlice("agg", nil, "aggregations 'fn:col[:id]' with fn one of sum, count, avg, min, max")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "join left right",
		Short: "Join two tables on key columns",
		Args:  cobra.ExactArgs(2),
		Run:   joinTables}
	cmd.Flags().StringSlice("on", nil, "key pairs 'left=right' or a shared column name")
	cmd.Flags().String("kind", "inner", "join kind: inner, left, right or full")
	cmd.Flags().StringSlice("left-columns", nil, "left columns to keep")
	cmd.Flags().StringSlice("right-columns", nil, "right columns to keep")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "describe file",
		Short: "Show the columns of a table with their ranges",
		Args:  cobra.ExactArgs(1),
		Run:   describe}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "share profile [share.schema.table]",
		Short: "List or load tables from a Delta Sharing server",
		Args:  cobra.RangeArgs(1, 2),
		Run:   share}
	cmd.Flags().Int("timeout", deltasharing.DefaultTimeoutSeconds, "server call timeout in seconds")
	cmd.Flags().String("file-id", "", "data file to load (default: first)")
	cmd.Flags().String("where", "", "row filter")
	cmd.Flags().StringSlice("columns", nil, "columns to load")
	cmd.Flags().Int("limit", 0, "maximum number of rows")
	root.AddCommand(cmd)
}
