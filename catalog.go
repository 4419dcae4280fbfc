package salesql

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nao1215/salesql/domain/model"
)

// Catalog query names.
const (
	QueryTopProducts    = "TopProducts"
	QuerySalesByCountry = "SalesByCountry"
	QueryMonthlyTrend   = "MonthlyTrend"
)

// DefaultTopLimit is the row limit of the ranked queries.
const DefaultTopLimit = 5

// rankSumSQL sums rankAmount over a group. UnitPrice is stored as REAL,
// and ROUND recovers the scaled integer for any price with up to
// rankScale decimal places.
var rankSumSQL = "SUM(Quantity * CAST(ROUND(UnitPrice * 1" + strings.Repeat("0", rankScale) + ") AS INTEGER))"

// Query is a named SQL statement.
type Query struct {
	Name string
	SQL  string
}

// Catalog holds the fixed set of analytical queries over one table.
// The SQL text is literal so that the persisted file is exactly what runs.
type Catalog struct {
	table        string
	topLimit     int
	countryLimit int
	queries      []Query
	logger       *zap.Logger
}

// CatalogOption configures NewCatalog.
type CatalogOption func(*Catalog)

// WithTopLimit sets the row limit of TopProducts.
func WithTopLimit(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.topLimit = n
		}
	}
}

// WithCountryLimit sets the row limit of SalesByCountry.
func WithCountryLimit(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.countryLimit = n
		}
	}
}

// WithCatalogLogger sets the logger used when running queries.
func WithCatalogLogger(l *zap.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCatalog builds the queries for table.
func NewCatalog(table string, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		table:        model.NewTableName(table).Sanitize().String(),
		topLimit:     DefaultTopLimit,
		countryLimit: DefaultTopLimit,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Groups are ranked on an exact integer sum rather than the float
	// TotalSales, so equal amounts tie and the group key breaks them.
	c.queries = []Query{
		{
			Name: QueryTopProducts,
			SQL: fmt.Sprintf(`SELECT Description, SUM(Quantity * UnitPrice) AS TotalSales
FROM "%s"
WHERE Quantity > 0 AND UnitPrice > 0
GROUP BY Description
ORDER BY %s DESC, Description ASC
LIMIT %d;`, c.table, rankSumSQL, c.topLimit),
		},
		{
			Name: QuerySalesByCountry,
			SQL: fmt.Sprintf(`SELECT Country, COUNT(DISTINCT InvoiceNo) AS TransactionCount, SUM(Quantity * UnitPrice) AS TotalSales
FROM "%s"
GROUP BY Country
ORDER BY %s DESC, Country ASC
LIMIT %d;`, c.table, rankSumSQL, c.countryLimit),
		},
		{
			Name: QueryMonthlyTrend,
			SQL: fmt.Sprintf(`SELECT strftime('%%Y-%%m', InvoiceDate) AS Month, SUM(Quantity * UnitPrice) AS TotalSales
FROM "%s"
GROUP BY Month
ORDER BY Month ASC;`, c.table),
		},
	}
	return c
}

// Table returns the sanitized table name the queries read.
func (c *Catalog) Table() string {
	return c.table
}

// Queries returns the catalog in execution order.
func (c *Catalog) Queries() []Query {
	out := make([]Query, len(c.queries))
	copy(out, c.queries)
	return out
}

// Lookup returns the query called name.
func (c *Catalog) Lookup(name string) (Query, bool) {
	for _, q := range c.queries {
		if q.Name == name {
			return q, true
		}
	}
	return Query{}, false
}

// SQL renders the catalog as a script, each statement preceded by its name.
func (c *Catalog) SQL() string {
	var b strings.Builder
	for i, q := range c.queries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("-- " + q.Name + "\n")
		b.WriteString(q.SQL)
		b.WriteString("\n")
	}
	return b.String()
}

// Run executes the query called name.
func (c *Catalog) Run(ctx context.Context, q Querier, name string) (*QueryResult, error) {
	query, ok := c.Lookup(name)
	if !ok {
		return nil, NewErrorContext("query", "").WithTable(c.table).
			WithDetails("unknown query "+strconv.Quote(name)).Wrap(ErrQueryExecution, nil)
	}
	ec := NewErrorContext("query "+name, "").WithTable(c.table)

	rows, err := q.QueryContext(ctx, query.SQL)
	if err != nil {
		return nil, ec.Wrap(ErrQueryExecution, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, ec.Wrap(ErrQueryExecution, err)
	}
	result := &QueryResult{Name: name, Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, ec.Wrap(ErrQueryExecution, err)
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, ec.Wrap(ErrQueryExecution, err)
	}

	c.logger.Debug("query executed", zap.String("query", name), zap.Int("rows", len(result.Rows)))
	return result, nil
}

// TopProducts runs the TopProducts query.
func (c *Catalog) TopProducts(ctx context.Context, q Querier) ([]ProductSales, error) {
	r, err := c.Run(ctx, q, QueryTopProducts)
	if err != nil {
		return nil, err
	}
	return r.ProductSales()
}

// SalesByCountry runs the SalesByCountry query.
func (c *Catalog) SalesByCountry(ctx context.Context, q Querier) ([]CountrySales, error) {
	r, err := c.Run(ctx, q, QuerySalesByCountry)
	if err != nil {
		return nil, err
	}
	return r.CountrySales()
}

// MonthlyTrend runs the MonthlyTrend query.
func (c *Catalog) MonthlyTrend(ctx context.Context, q Querier) ([]MonthlySales, error) {
	r, err := c.Run(ctx, q, QueryMonthlyTrend)
	if err != nil {
		return nil, err
	}
	return r.MonthlySales()
}

// Results holds the outcome of RunAll. A failed query has a nil result and
// an entry in Errors.
type Results struct {
	TopProducts    *QueryResult
	SalesByCountry *QueryResult
	MonthlyTrend   *QueryResult
	Errors         map[string]error
}

// OK reports whether every query succeeded.
func (r Results) OK() bool {
	return len(r.Errors) == 0
}

// Problems lists the failures sorted by query name.
func (r Results) Problems() []string {
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s: %v", name, r.Errors[name]))
	}
	return out
}

// RunAll executes every query. A failing query does not stop the others.
func (c *Catalog) RunAll(ctx context.Context, q Querier) Results {
	res := Results{Errors: map[string]error{}}
	for _, query := range c.queries {
		r, err := c.Run(ctx, q, query.Name)
		if err == nil {
			err = r.validate()
			if err != nil {
				r = nil
			}
		}
		if err != nil {
			c.logger.Warn("query failed", zap.String("query", query.Name), zap.Error(err))
			res.Errors[query.Name] = err
			continue
		}
		switch query.Name {
		case QueryTopProducts:
			res.TopProducts = r
		case QuerySalesByCountry:
			res.SalesByCountry = r
		case QueryMonthlyTrend:
			res.MonthlyTrend = r
		}
	}
	return res
}
