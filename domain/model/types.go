// Package model provides domain model for salesql
package model

import (
	"fmt"
	"strings"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Header is file header.
type Header []string

// NewHeader create new Header. Cells are trimmed and a UTF-8 BOM on the
// first cell is removed.
func NewHeader(h []string) Header {
	out := make(Header, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		out[i] = c
	}
	return out
}

// Equal compare Header.
func (h Header) Equal(h2 Header) bool {
	if len(h) != len(h2) {
		return false
	}
	for i, v := range h {
		if v != h2[i] {
			return false
		}
	}
	return true
}

// ColumnType represents the SQL column type
type ColumnType int

const (
	// ColumnTypeText represents TEXT column type
	ColumnTypeText ColumnType = iota
	// ColumnTypeInteger represents INTEGER column type
	ColumnTypeInteger
	// ColumnTypeReal represents REAL column type
	ColumnTypeReal
	// ColumnTypeDatetime represents datetime stored as TEXT in ISO8601 format
	ColumnTypeDatetime
)

const (
	sqlTypeText    = "TEXT"
	sqlTypeInteger = "INTEGER"
	sqlTypeReal    = "REAL"
)

// String returns the SQL column type string
func (ct ColumnType) String() string {
	switch ct {
	case ColumnTypeText:
		return sqlTypeText
	case ColumnTypeInteger:
		return sqlTypeInteger
	case ColumnTypeReal:
		return sqlTypeReal
	case ColumnTypeDatetime:
		return sqlTypeText // SQLite stores datetime as TEXT in ISO8601 format
	default:
		return sqlTypeText
	}
}

// Column names of the transaction relation.
const (
	ColumnInvoiceNo   = "InvoiceNo"
	ColumnStockCode   = "StockCode"
	ColumnDescription = "Description"
	ColumnQuantity    = "Quantity"
	ColumnInvoiceDate = "InvoiceDate"
	ColumnUnitPrice   = "UnitPrice"
	ColumnCustomerID  = "CustomerID"
	ColumnCountry     = "Country"
	ColumnTotalPrice  = "TotalPrice"
)

// Column declares one named column and its semantic type.
type Column struct {
	Name string
	Type ColumnType
	// Nullable columns accept empty cells in the input.
	Nullable bool
	// Derived columns are computed by the cleaner and never read from input.
	Derived bool
}

// Schema is an ordered list of declared columns.
type Schema []Column

// TransactionSchema is the declared schema of the sales relation.
var TransactionSchema = Schema{
	{Name: ColumnInvoiceNo, Type: ColumnTypeText},
	{Name: ColumnStockCode, Type: ColumnTypeText},
	{Name: ColumnDescription, Type: ColumnTypeText, Nullable: true},
	{Name: ColumnQuantity, Type: ColumnTypeInteger},
	{Name: ColumnInvoiceDate, Type: ColumnTypeDatetime},
	{Name: ColumnUnitPrice, Type: ColumnTypeReal},
	{Name: ColumnCustomerID, Type: ColumnTypeText, Nullable: true},
	{Name: ColumnCountry, Type: ColumnTypeText},
	{Name: ColumnTotalPrice, Type: ColumnTypeReal, Derived: true},
}

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Input returns the columns expected in the input file.
func (s Schema) Input() Schema {
	out := make(Schema, 0, len(s))
	for _, c := range s {
		if !c.Derived {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks h against the input columns of s and returns the position
// of every declared input column in h. Columns in h that s does not declare
// are returned as extra; they are not an error.
func (s Schema) Validate(h Header) (index map[string]int, extra []string, err error) {
	seen := make(map[string]int, len(h))
	for i, name := range h {
		if _, dup := seen[name]; dup {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateColumnName, name)
		}
		seen[name] = i
	}

	index = make(map[string]int, len(s))
	var missing []string
	for _, c := range s.Input() {
		i, ok := seen[c.Name]
		if !ok {
			missing = append(missing, c.Name)
			continue
		}
		index[c.Name] = i
		delete(seen, c.Name)
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	for _, name := range h {
		if _, ok := seen[name]; ok {
			extra = append(extra, name)
		}
	}
	return index, extra, nil
}
