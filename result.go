package salesql

import (
	"fmt"
	"strconv"
)

// QueryResult is the tabular output of one catalog query.
type QueryResult struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// ProductSales is one row of TopProducts.
type ProductSales struct {
	Description string
	TotalSales  float64
}

// CountrySales is one row of SalesByCountry.
type CountrySales struct {
	Country          string
	TransactionCount int64
	TotalSales       float64
}

// MonthlySales is one row of MonthlyTrend.
type MonthlySales struct {
	Month      string
	TotalSales float64
}

// Len returns the number of rows.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// ColumnIndex returns the position of column name, or -1.
func (r *QueryResult) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Text returns the value at row, column as text.
func (r *QueryResult) Text(row int, column string) (string, error) {
	v, err := r.value(row, column)
	if err != nil {
		return "", err
	}
	return asText(v), nil
}

// Float returns the value at row, column as float64.
func (r *QueryResult) Float(row int, column string) (float64, error) {
	v, err := r.value(row, column)
	if err != nil {
		return 0, err
	}
	return asFloat(v)
}

// Int returns the value at row, column as int64.
func (r *QueryResult) Int(row int, column string) (int64, error) {
	v, err := r.value(row, column)
	if err != nil {
		return 0, err
	}
	return asInt(v)
}

func (r *QueryResult) value(row int, column string) (any, error) {
	i := r.ColumnIndex(column)
	if i < 0 {
		return nil, fmt.Errorf("%s: no column %q", r.Name, column)
	}
	if row < 0 || row >= len(r.Rows) {
		return nil, fmt.Errorf("%s: row %d out of range", r.Name, row)
	}
	return r.Rows[row][i], nil
}

// ProductSales projects the rows of a TopProducts result.
func (r *QueryResult) ProductSales() ([]ProductSales, error) {
	out := make([]ProductSales, 0, r.Len())
	for i := range r.Len() {
		desc, err := r.Text(i, "Description")
		if err != nil {
			return nil, err
		}
		total, err := r.Float(i, "TotalSales")
		if err != nil {
			return nil, err
		}
		out = append(out, ProductSales{Description: desc, TotalSales: total})
	}
	return out, nil
}

// CountrySales projects the rows of a SalesByCountry result.
func (r *QueryResult) CountrySales() ([]CountrySales, error) {
	out := make([]CountrySales, 0, r.Len())
	for i := range r.Len() {
		country, err := r.Text(i, "Country")
		if err != nil {
			return nil, err
		}
		n, err := r.Int(i, "TransactionCount")
		if err != nil {
			return nil, err
		}
		total, err := r.Float(i, "TotalSales")
		if err != nil {
			return nil, err
		}
		out = append(out, CountrySales{Country: country, TransactionCount: n, TotalSales: total})
	}
	return out, nil
}

// MonthlySales projects the rows of a MonthlyTrend result.
func (r *QueryResult) MonthlySales() ([]MonthlySales, error) {
	out := make([]MonthlySales, 0, r.Len())
	for i := range r.Len() {
		month, err := r.Text(i, "Month")
		if err != nil {
			return nil, err
		}
		total, err := r.Float(i, "TotalSales")
		if err != nil {
			return nil, err
		}
		out = append(out, MonthlySales{Month: month, TotalSales: total})
	}
	return out, nil
}

// validate checks that the result decodes into its typed projection.
func (r *QueryResult) validate() error {
	var err error
	switch r.Name {
	case QueryTopProducts:
		_, err = r.ProductSales()
	case QuerySalesByCountry:
		_, err = r.CountrySales()
	case QueryMonthlyTrend:
		_, err = r.MonthlySales()
	}
	if err != nil {
		return NewErrorContext("query "+r.Name, "").Wrap(ErrQueryExecution, err)
	}
	return nil
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(t, 64)
	case []byte:
		return strconv.ParseFloat(string(t), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

func asInt(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}
