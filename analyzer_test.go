package salesql

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/salesql/domain/model"
)

func TestAnalyze_AverageOrderValue(t *testing.T) {
	t.Parallel()

	// Invoice A has rows of 10 and 20, invoice B a single row of 5.
	txns := []model.Transaction{
		txn(t, "A", "MUG", 1, "10.00", "France", "2011-01-01 10:00:00"),
		txn(t, "A", "PLATE", 2, "10.00", "France", "2011-01-01 10:00:00"),
		txn(t, "B", "BOWL", 1, "5.00", "Spain", "2011-01-02 10:00:00"),
	}
	s := Analyze(txns)

	assert.True(t, s.TotalSales.Equal(decimal.NewFromInt(35)))
	assert.Equal(t, 2, s.InvoiceCount)
	assert.Equal(t, 3, s.RowCount)

	// (30 + 5) / 2, not (10 + 20 + 5) / 3.
	aov, err := s.AverageOrderValueOrErr()
	require.NoError(t, err)
	assert.True(t, aov.Equal(decimal.RequireFromString("17.5")), "got %s", aov)

	assert.Equal(t, "France", s.TopCountry)
	assert.True(t, s.TopCountrySales.Equal(decimal.NewFromInt(30)))
}

func TestAnalyze_Empty(t *testing.T) {
	t.Parallel()

	s := Analyze(nil)
	assert.True(t, s.TotalSales.IsZero())
	assert.False(t, s.AverageOrderValue.Valid)
	assert.Empty(t, s.TopCountry)
	assert.Zero(t, s.InvoiceCount)

	_, err := s.AverageOrderValueOrErr()
	assert.ErrorIs(t, err, ErrUndefinedAverage)
}

func TestAnalyze_Sample(t *testing.T) {
	t.Parallel()

	s := Analyze(loadSample(t))
	assert.True(t, s.TotalSales.Equal(decimal.RequireFromString(sampleTotalSales)), "got %s", s.TotalSales)
	assert.Equal(t, sampleInvoices, s.InvoiceCount)
	assert.Equal(t, sampleRowsOut, s.RowCount)
	assert.Equal(t, sampleTopCountry, s.TopCountry)
	assert.True(t, s.TopCountrySales.Equal(decimal.RequireFromString("83.25")))

	aov, err := s.AverageOrderValueOrErr()
	require.NoError(t, err)
	assert.Equal(t, "22.62714286", aov.String())
}

func TestAnalyze_TopCountryTie(t *testing.T) {
	t.Parallel()

	txns := []model.Transaction{
		txn(t, "1", "MUG", 1, "10", "Spain", "2011-01-01 10:00:00"),
		txn(t, "2", "MUG", 1, "10", "France", "2011-01-01 10:00:00"),
	}
	s := Analyze(txns)
	assert.Equal(t, "France", s.TopCountry)
	assert.True(t, s.TopCountrySales.Equal(decimal.NewFromInt(10)))
}

func TestAnalyze_BlankCountry(t *testing.T) {
	t.Parallel()

	txns := []model.Transaction{
		txn(t, "1", "MUG", 1, "100", "", "2011-01-01 10:00:00"),
		txn(t, "2", "MUG", 1, "1", "France", "2011-01-01 10:00:00"),
	}
	s := Analyze(txns)
	assert.Equal(t, "", s.TopCountry)
	assert.True(t, s.TopCountrySales.Equal(decimal.NewFromInt(100)), "got %s", s.TopCountrySales)
}

func TestTopProductsInMemory(t *testing.T) {
	t.Parallel()

	got := TopProductsInMemory(loadSample(t), 3)
	require.Len(t, got, 3)
	assert.Equal(t, "ROUND SNACK BOXES SET OF4 WOODLAND", got[0].Description)
	assert.InDelta(t, 70.80, got[0].TotalSales, 1e-9)
	assert.Equal(t, "WHITE METAL LANTERN", got[1].Description)
	assert.Equal(t, "HOT WATER BOTTLE, TEA AND SYMPATHY", got[2].Description)

	all := TopProductsInMemory(loadSample(t), 0)
	assert.Len(t, all, sampleRowsOut)

	assert.Empty(t, TopProductsInMemory(nil, 5))
}

func TestTopProductsInMemory_HalfCent(t *testing.T) {
	t.Parallel()

	txns := []model.Transaction{
		txn(t, "1", "AAA", 1, "1.005", "France", "2011-01-01 10:00:00"),
		txn(t, "2", "BBB", 1, "1.01", "France", "2011-01-01 10:00:00"),
		// 3 x 0.10 equals 0.30 exactly, so the name decides.
		txn(t, "3", "DDD", 1, "0.30", "France", "2011-01-01 10:00:00"),
		txn(t, "4", "CCC", 3, "0.10", "France", "2011-01-01 10:00:00"),
	}
	got := TopProductsInMemory(txns, 0)
	require.Len(t, got, 4)
	assert.Equal(t, "BBB", got[0].Description)
	assert.Equal(t, "AAA", got[1].Description)
	assert.Equal(t, "CCC", got[2].Description)
	assert.Equal(t, "DDD", got[3].Description)
}
