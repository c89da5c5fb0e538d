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

import "errors"

// Common errors returned by the datatable package.
var (
	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrColumnNotFound is returned when a column id or label is not found.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidFilter is returned when a filter specification is malformed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidSortColumn is returned when a sort specification is malformed.
	ErrInvalidSortColumn = errors.New("invalid sort column")

	// ErrDuplicateSortColumn is returned when a sort specification names a column twice.
	ErrDuplicateSortColumn = errors.New("duplicate sort column")

	// ErrInvalidColumnSpec is returned when a column or view column specification is malformed.
	ErrInvalidColumnSpec = errors.New("invalid column specification")

	// ErrInvalidType is returned for an unknown column type or an unsupported value.
	ErrInvalidType = errors.New("invalid type")

	// ErrTypeMismatch is returned when a value does not match its column type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrShapeMismatch is returned when a row length disagrees with the column count.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidCell is returned when a cell object has a malformed formatted value or properties.
	ErrInvalidCell = errors.New("invalid cell")

	// ErrNotSerializable is returned when serializing function columns or opaque calculations.
	ErrNotSerializable = errors.New("not serializable")

	// ErrInvalidSnapshot is returned when a wire snapshot cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrNoDataSource is returned when a required data source is nil.
	ErrNoDataSource = errors.New("data source is nil")

	// ErrReadOnlyColumn is returned when writing a cell of a computed view column.
	ErrReadOnlyColumn = errors.New("column is read-only")

	// ErrExportFailed is returned when an export operation fails.
	ErrExportFailed = errors.New("export failed")
)
