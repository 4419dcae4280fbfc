package salesql

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nao1215/salesql/domain/model"
)

// Summary holds the scalar statistics of a set of transactions.
type Summary struct {
	TotalSales decimal.Decimal
	// AverageOrderValue is invalid when there are no invoices.
	AverageOrderValue decimal.NullDecimal
	// TopCountry is undefined when RowCount is 0. An empty name is a
	// valid country otherwise.
	TopCountry      string
	TopCountrySales decimal.Decimal
	InvoiceCount    int
	RowCount        int
}

// AverageOrderValueOrErr returns the average order value or ErrUndefinedAverage.
func (s Summary) AverageOrderValueOrErr() (decimal.Decimal, error) {
	if !s.AverageOrderValue.Valid {
		return decimal.Zero, ErrUndefinedAverage
	}
	return s.AverageOrderValue.Decimal, nil
}

// averageScale is the number of decimal places kept by the average.
const averageScale = 8

// rankScale is the number of decimal places kept when ranking. A unit price
// is scaled to an integer at this precision before it is multiplied, in Go
// and in SQL alike, so both sides order groups on identical integer sums.
const rankScale = 4

// rankAmount returns Quantity * UnitPrice in units of 10^-rankScale.
func rankAmount(t model.Transaction) int64 {
	return t.Quantity * t.UnitPrice.Shift(rankScale).Round(0).IntPart()
}

// Analyze computes total sales, the average order value over distinct
// invoices and the country with the highest sales. Countries are ranked
// the way SalesByCountry ranks them: equal amounts go to the
// lexicographically smaller name.
func Analyze(txns []model.Transaction) Summary {
	s := Summary{
		TotalSales:      decimal.Zero,
		TopCountrySales: decimal.Zero,
		RowCount:        len(txns),
	}

	type countryTotal struct {
		sales decimal.Decimal
		rank  int64
	}
	invoices := make(map[string]decimal.Decimal)
	countries := make(map[string]*countryTotal)
	for _, t := range txns {
		s.TotalSales = s.TotalSales.Add(t.TotalPrice)
		invoices[t.InvoiceNo] = invoices[t.InvoiceNo].Add(t.TotalPrice)
		ct, ok := countries[t.Country]
		if !ok {
			ct = &countryTotal{sales: decimal.Zero}
			countries[t.Country] = ct
		}
		ct.sales = ct.sales.Add(t.TotalPrice)
		ct.rank += rankAmount(t)
	}

	s.InvoiceCount = len(invoices)
	if s.InvoiceCount > 0 {
		sum := decimal.Zero
		for _, v := range invoices {
			sum = sum.Add(v)
		}
		avg := sum.DivRound(decimal.NewFromInt(int64(s.InvoiceCount)), averageScale)
		s.AverageOrderValue = decimal.NewNullDecimal(avg)
	}

	// An empty Country is a legal group, so "" cannot mark "not found yet".
	var (
		found    bool
		bestRank int64
	)
	for c, ct := range countries {
		if !found || ct.rank > bestRank || (ct.rank == bestRank && c < s.TopCountry) {
			found = true
			bestRank = ct.rank
			s.TopCountry = c
			s.TopCountrySales = ct.sales
		}
	}
	return s
}

// TopProductsInMemory ranks descriptions by summed TotalPrice the same way
// the TopProducts query does: exact amount descending, then description
// ascending.
func TopProductsInMemory(txns []model.Transaction, limit int) []ProductSales {
	type entry struct {
		desc  string
		total decimal.Decimal
		rank  int64
	}
	index := make(map[string]int)
	var entries []entry
	for _, t := range txns {
		if t.Quantity <= 0 || !t.UnitPrice.IsPositive() {
			continue
		}
		i, ok := index[t.Description]
		if !ok {
			i = len(entries)
			index[t.Description] = i
			entries = append(entries, entry{desc: t.Description, total: decimal.Zero})
		}
		entries[i].total = entries[i].total.Add(t.TotalPrice)
		entries[i].rank += rankAmount(t)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rank != entries[j].rank {
			return entries[i].rank > entries[j].rank
		}
		return entries[i].desc < entries[j].desc
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]ProductSales, len(entries))
	for i, e := range entries {
		out[i] = ProductSales{Description: e.desc, TotalSales: e.total.InexactFloat64()}
	}
	return out
}
