package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is one parsed input row before cleaning.
type RawTransaction struct {
	// Line is the 1-based line of the row in the input file.
	Line        int
	InvoiceNo   string
	StockCode   string
	Description sql.NullString
	Quantity    int64
	// InvoiceDate is kept as text until the cleaner parses it.
	InvoiceDate string
	UnitPrice   decimal.Decimal
	CustomerID  sql.NullString
	Country     string
}

// Transaction is a cleaned sale line.
type Transaction struct {
	Line        int
	InvoiceNo   string
	StockCode   string
	Description string
	Quantity    int64
	InvoiceDate time.Time
	UnitPrice   decimal.Decimal
	CustomerID  string
	Country     string
	// TotalPrice is Quantity * UnitPrice.
	TotalPrice decimal.Decimal
}

// Raw converts t back into its input form with the date in DateTimeLayout.
func (t Transaction) Raw() RawTransaction {
	return RawTransaction{
		Line:        t.Line,
		InvoiceNo:   t.InvoiceNo,
		StockCode:   t.StockCode,
		Description: sql.NullString{String: t.Description, Valid: true},
		Quantity:    t.Quantity,
		InvoiceDate: FormatTimestamp(t.InvoiceDate),
		UnitPrice:   t.UnitPrice,
		CustomerID:  sql.NullString{String: t.CustomerID, Valid: true},
		Country:     t.Country,
	}
}

// Values returns the column values in TransactionSchema order, ready for
// a SQL insert. Money is passed as float64 since the store keeps REAL.
func (t Transaction) Values() []any {
	return []any{
		t.InvoiceNo,
		t.StockCode,
		t.Description,
		t.Quantity,
		FormatTimestamp(t.InvoiceDate),
		t.UnitPrice.InexactFloat64(),
		t.CustomerID,
		t.Country,
		t.TotalPrice.InexactFloat64(),
	}
}

// Equal reports whether t and t2 hold the same column values.
// Line is not a column and is ignored.
func (t Transaction) Equal(t2 Transaction) bool {
	return t.InvoiceNo == t2.InvoiceNo &&
		t.StockCode == t2.StockCode &&
		t.Description == t2.Description &&
		t.Quantity == t2.Quantity &&
		t.InvoiceDate.Equal(t2.InvoiceDate) &&
		t.UnitPrice.Equal(t2.UnitPrice) &&
		t.CustomerID == t2.CustomerID &&
		t.Country == t2.Country &&
		t.TotalPrice.Equal(t2.TotalPrice)
}
