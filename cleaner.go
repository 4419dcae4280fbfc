package salesql

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/nao1215/salesql/domain/model"
)

// CleanStats counts what each cleaning step removed.
type CleanStats struct {
	RowsIn           int
	DroppedNull      int
	DroppedQuantity  int
	DroppedUnitPrice int
	DroppedDuplicate int
	RowsOut          int
}

// Dropped returns the total number of removed rows.
func (s CleanStats) Dropped() int {
	return s.DroppedNull + s.DroppedQuantity + s.DroppedUnitPrice + s.DroppedDuplicate
}

type cleanConfig struct {
	layouts []string
	logger  *zap.Logger
}

// CleanOption configures Clean.
type CleanOption func(*cleanConfig)

// WithDateLayouts replaces the built-in InvoiceDate layouts.
func WithDateLayouts(layouts ...string) CleanOption {
	return func(c *cleanConfig) {
		c.layouts = layouts
	}
}

// WithCleanLogger sets the logger that receives the cleaning statistics.
func WithCleanLogger(l *zap.Logger) CleanOption {
	return func(c *cleanConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Clean turns raw rows into transactions. The steps run in this order:
//
//  1. drop rows with a null CustomerID or Description
//  2. drop rows with Quantity <= 0
//  3. drop rows with UnitPrice <= 0
//  4. parse InvoiceDate; an unparsable date fails the whole call
//  5. derive TotalPrice = Quantity * UnitPrice
//  6. drop exact duplicates, keeping the first occurrence
//
// raw is not modified.
func Clean(raw []model.RawTransaction, opts ...CleanOption) ([]model.Transaction, CleanStats, error) {
	cfg := &cleanConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	stats := CleanStats{RowsIn: len(raw)}
	kept := make([]model.Transaction, 0, len(raw))
	for _, r := range raw {
		switch {
		case !r.CustomerID.Valid || !r.Description.Valid:
			stats.DroppedNull++
			continue
		case r.Quantity <= 0:
			stats.DroppedQuantity++
			continue
		case !r.UnitPrice.IsPositive():
			stats.DroppedUnitPrice++
			continue
		}

		date, err := model.ParseTimestampWithLayouts(r.InvoiceDate, cfg.layouts)
		if err != nil {
			ec := NewErrorContext("clean", "").
				WithDetails("line " + strconv.Itoa(r.Line) + ", column " + model.ColumnInvoiceDate)
			return nil, stats, ec.Wrap(ErrInputParse, err)
		}

		kept = append(kept, model.Transaction{
			Line:        r.Line,
			InvoiceNo:   r.InvoiceNo,
			StockCode:   r.StockCode,
			Description: r.Description.String,
			Quantity:    r.Quantity,
			InvoiceDate: date,
			UnitPrice:   r.UnitPrice,
			CustomerID:  r.CustomerID.String,
			Country:     r.Country,
			TotalPrice:  r.UnitPrice.Mul(decimal.NewFromInt(r.Quantity)),
		})
	}

	out := dedupTransactions(kept)
	stats.DroppedDuplicate = len(kept) - len(out)
	stats.RowsOut = len(out)

	cfg.logger.Info("transactions cleaned",
		zap.Int("rows_in", stats.RowsIn),
		zap.Int("dropped_null", stats.DroppedNull),
		zap.Int("dropped_quantity", stats.DroppedQuantity),
		zap.Int("dropped_unit_price", stats.DroppedUnitPrice),
		zap.Int("dropped_duplicate", stats.DroppedDuplicate),
		zap.Int("rows_out", stats.RowsOut),
	)
	return out, stats, nil
}

// dedupTransactions keeps the first occurrence of every distinct row.
// Rows are bucketed by fingerprint and compared in full within a bucket.
func dedupTransactions(in []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(in))
	buckets := make(map[uint64][]int, len(in))
	for _, t := range in {
		fp := fingerprint(t)
		dup := false
		for _, i := range buckets[fp] {
			if out[i].Equal(t) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[fp] = append(buckets[fp], len(out))
		out = append(out, t)
	}
	return out
}

// fingerprint hashes the column values of t. Decimals are hashed in their
// canonical form so that 1.5 and 1.50 collide.
func fingerprint(t model.Transaction) uint64 {
	var b strings.Builder
	for i, v := range []string{
		t.InvoiceNo,
		t.StockCode,
		t.Description,
		strconv.FormatInt(t.Quantity, 10),
		strconv.FormatInt(t.InvoiceDate.UnixNano(), 10),
		t.UnitPrice.String(),
		t.CustomerID,
		t.Country,
		t.TotalPrice.String(),
	} {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(v)
	}
	return xxh3.HashString(b.String())
}
