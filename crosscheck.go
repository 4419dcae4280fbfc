package salesql

import (
	"fmt"
	"math"
)

// DefaultCrossCheckTolerance is the absolute difference allowed between a
// SQL total and its in-memory counterpart.
const DefaultCrossCheckTolerance = 0.01

// CrossCheckTopProducts compares the TopProducts query against the in-memory
// ranking. It fails on the first rank whose description differs or whose
// total is off by more than tolerance.
func CrossCheckTopProducts(sqlRows, memRows []ProductSales, tolerance float64) error {
	ec := NewErrorContext("cross-check "+QueryTopProducts, "")
	if len(sqlRows) != len(memRows) {
		return ec.WithDetails(fmt.Sprintf("sql returned %d rows, in-memory %d", len(sqlRows), len(memRows))).
			Wrap(ErrCrossCheckMismatch, nil)
	}
	for i := range sqlRows {
		s, m := sqlRows[i], memRows[i]
		if s.Description != m.Description {
			return ec.WithDetails(fmt.Sprintf("rank %d: sql %q, in-memory %q", i+1, s.Description, m.Description)).
				Wrap(ErrCrossCheckMismatch, nil)
		}
		if math.Abs(s.TotalSales-m.TotalSales) > tolerance {
			return ec.WithDetails(fmt.Sprintf("rank %d (%s): sql %.4f, in-memory %.4f", i+1, s.Description, s.TotalSales, m.TotalSales)).
				Wrap(ErrCrossCheckMismatch, nil)
		}
	}
	return nil
}
