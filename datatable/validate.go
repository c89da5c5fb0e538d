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

import "fmt"

// ValidateRowIndex returns ErrInvalidRow unless 0 <= row < ds.NumberOfRows().
func ValidateRowIndex(ds DataSource, row int) error {
	if row < 0 || row >= ds.NumberOfRows() {
		return fmt.Errorf("%w: %d (row count %d)", ErrInvalidRow, row, ds.NumberOfRows())
	}
	return nil
}

// ValidateColumnIndex returns ErrInvalidColumn unless 0 <= col < ds.NumberOfColumns().
func ValidateColumnIndex(ds DataSource, col int) error {
	if col < 0 || col >= ds.NumberOfColumns() {
		return fmt.Errorf("%w: %d (column count %d)", ErrInvalidColumn, col, ds.NumberOfColumns())
	}
	return nil
}

// ValidateColumnReference resolves ref against ds and returns its index.
func ValidateColumnReference(ds DataSource, ref ColumnRef) (int, error) {
	switch r := ref.(type) {
	case nil:
		return -1, fmt.Errorf("%w: nil column reference", ErrColumnNotFound)
	case Index:
		if err := ValidateColumnIndex(ds, int(r)); err != nil {
			return -1, err
		}
		return int(r), nil
	case ID:
		idx := ds.ColumnIndex(r)
		if idx < 0 {
			return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, string(r))
		}
		return idx, nil
	default:
		return -1, fmt.Errorf("%w: unsupported column reference %T", ErrColumnNotFound, ref)
	}
}

// ValidateColumnSet checks every entry of a view column set against ds
// without modifying anything.
func ValidateColumnSet(ds DataSource, cols []ViewColumn) error {
	for i, c := range cols {
		switch col := c.(type) {
		case nil:
			return fmt.Errorf("%w: entry %d is nil", ErrInvalidColumnSpec, i)
		case Index:
			if err := ValidateColumnIndex(ds, int(col)); err != nil {
				return fmt.Errorf("view column %d: %w", i, err)
			}
		case ID:
			if _, err := ValidateColumnReference(ds, col); err != nil {
				return fmt.Errorf("view column %d: %w", i, err)
			}
		case *ComputedColumn:
			if col == nil {
				return fmt.Errorf("%w: entry %d is nil", ErrInvalidColumnSpec, i)
			}
			if col.Calc == nil && col.SourceColumn == nil {
				return fmt.Errorf("%w: entry %d has neither calc nor sourceColumn", ErrInvalidColumnSpec, i)
			}
			if col.SourceColumn != nil {
				if _, err := ValidateColumnReference(ds, col.SourceColumn); err != nil {
					return fmt.Errorf("view column %d source: %w", i, err)
				}
			}
			if !col.Type.Valid() {
				return fmt.Errorf("%w: entry %d has type %s", ErrInvalidType, i, col.Type)
			}
			if col.SourceColumn == nil && col.Type == TypeUnspecified && !defaultsToString(col.Calc) {
				return fmt.Errorf("%w: entry %d needs a type", ErrInvalidColumnSpec, i)
			}
		default:
			return fmt.Errorf("%w: entry %d has unsupported type %T", ErrInvalidColumnSpec, i, c)
		}
	}
	return nil
}

func validateRowRange(ds DataSource, minRow, maxRow int) error {
	if err := ValidateRowIndex(ds, minRow); err != nil {
		return err
	}
	if err := ValidateRowIndex(ds, maxRow); err != nil {
		return err
	}
	if minRow > maxRow {
		return fmt.Errorf("%w: range start %d is after end %d", ErrInvalidRow, minRow, maxRow)
	}
	return nil
}
