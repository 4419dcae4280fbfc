package salesql

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/salesql/domain/model"
)

// Fixtures under testdata/.
const (
	sampleCSV    = "testdata/sample.csv"     // Latin-1, CRLF, one row per cleaning rule
	sampleBOMCSV = "testdata/sample_bom.csv" // UTF-8 with BOM
)

// Figures of sampleCSV after cleaning.
const (
	sampleRowsIn     = 12
	sampleRowsOut    = 8
	sampleInvoices   = 7
	sampleTotalSales = "158.39"
	sampleTopCountry = "Germany"
)

const sampleHeader = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"

// loadSample loads and cleans sampleCSV.
func loadSample(t *testing.T) []model.Transaction {
	t.Helper()
	store, err := Load(context.Background(), sampleCSV)
	require.NoError(t, err)
	txns, _, err := Clean(store.Records())
	require.NoError(t, err)
	return txns
}

// newLoadedSink returns a sink holding txns in table. It is closed when the
// test ends.
func newLoadedSink(t *testing.T, table string, txns []model.Transaction) *Sink {
	t.Helper()
	sink, err := OpenSink(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	require.NoError(t, sink.Load(context.Background(), table, txns))
	return sink
}

// writeTestFile writes content to dir/name and returns the path.
func writeTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func mustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test fixture
	require.NoError(t, err)
	return data
}

// txn builds a cleaned transaction. date uses model.DateTimeLayout.
func txn(t *testing.T, invoice, desc string, qty int64, price, country, date string) model.Transaction {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	d, err := time.Parse(model.DateTimeLayout, date)
	require.NoError(t, err)
	return model.Transaction{
		InvoiceNo:   invoice,
		StockCode:   "S-" + desc,
		Description: desc,
		Quantity:    qty,
		InvoiceDate: d,
		UnitPrice:   p,
		CustomerID:  "C1",
		Country:     country,
		TotalPrice:  p.Mul(decimal.NewFromInt(qty)),
	}
}

// raw builds an input row with every field present.
func raw(invoice, desc string, qty int64, price, customer, country, date string) model.RawTransaction {
	return model.RawTransaction{
		InvoiceNo:   invoice,
		StockCode:   "S-" + desc,
		Description: nullString(desc),
		Quantity:    qty,
		InvoiceDate: date,
		UnitPrice:   decimal.RequireFromString(price),
		CustomerID:  nullString(customer),
		Country:     country,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
