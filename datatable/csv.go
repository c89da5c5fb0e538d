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

package datatable

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteCSV writes one line per row of ds, one field per column, using the
// formatted value of every cell. Fields containing a comma, a quote or a
// newline are quoted with internal quotes doubled.
func WriteCSV(w io.Writer, ds DataSource) error {
	bw := bufio.NewWriter(w)
	for r := 0; r < ds.NumberOfRows(); r++ {
		for c := 0; c < ds.NumberOfColumns(); c++ {
			if c > 0 {
				if err := bw.WriteByte(','); err != nil {
					return fmt.Errorf("%w: %w", ErrExportFailed, err)
				}
			}
			f, err := ds.FormattedValue(r, c)
			if err != nil {
				return err
			}
			if _, err := bw.WriteString(EscapeCSV(f)); err != nil {
				return fmt.Errorf("%w: %w", ErrExportFailed, err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("%w: %w", ErrExportFailed, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// ToCSV returns the CSV rendering of ds as a string.
func ToCSV(ds DataSource) (string, error) {
	var sb strings.Builder
	if err := WriteCSV(&sb, ds); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// EscapeCSV quotes a field if it contains a comma, a quote or a newline.
func EscapeCSV(field string) string {
	if !strings.ContainsAny(field, ",\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
