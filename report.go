package salesql

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// Placeholders for values the run could not produce.
const (
	notApplicable = "n/a"
	notAvailable  = "not available"
)

// DefaultCurrency prefixes money amounts in the report.
const DefaultCurrency = "£"

// ReportInput is everything the renderer reads. A nil result means the
// query did not produce one.
type ReportInput struct {
	TopProducts    *QueryResult
	SalesByCountry *QueryResult
	MonthlyTrend   *QueryResult
	Summary        Summary
	// Stats is optional; nil omits the data quality section.
	Stats          *CleanStats
	Recommendation string
	Currency       string
	Problems       []string
	GeneratedAt    time.Time
	RunID          string
}

// Report is the rendered output of a run.
type Report struct {
	Markdown string
	Console  string
	Charts   []Chart
	// Complete is false when any problem was reported.
	Complete bool
}

// Render builds the charts, the markdown summary and the console text.
// Every number shown comes from in; nothing is recomputed.
func Render(in ReportInput) (*Report, error) {
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	problems := append([]string(nil), in.Problems...)

	products, err := projectProducts(in.TopProducts)
	if err != nil {
		problems = append(problems, err.Error())
		products = nil
	}
	countries, err := projectCountries(in.SalesByCountry)
	if err != nil {
		problems = append(problems, err.Error())
		countries = nil
	}
	months, err := projectMonths(in.MonthlyTrend)
	if err != nil {
		problems = append(problems, err.Error())
		months = nil
	}

	f := moneyFormatter(in.Currency)
	data := reportData{
		GeneratedAt:    in.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:          in.RunID,
		Complete:       len(problems) == 0,
		Problems:       problems,
		TotalSales:     f.decimal(in.Summary.TotalSales),
		AverageOrder:   notApplicable,
		TopCountry:     notApplicable,
		TopProduct:     notApplicable,
		Trend:          notAvailable,
		Recommendation: strings.TrimSpace(in.Recommendation),
		Invoices:       humanize.Comma(int64(in.Summary.InvoiceCount)),
		Rows:           humanize.Comma(int64(in.Summary.RowCount)),
	}
	if aov, err := in.Summary.AverageOrderValueOrErr(); err == nil {
		data.AverageOrder = f.decimal(aov)
	}
	if in.Summary.RowCount > 0 {
		data.TopCountry = fmt.Sprintf("%s (%s)", in.Summary.TopCountry, f.decimal(in.Summary.TopCountrySales))
	}
	if len(products) > 0 {
		data.TopProduct = fmt.Sprintf("%s (%s)", products[0].Description, f.float(products[0].TotalSales))
	}
	if len(months) > 0 {
		data.Trend = trendSentence(months, f)
	}
	if in.Stats != nil {
		data.Stats = statsRows(*in.Stats)
	}

	data.ProductsTable = resultTable(products != nil, productRows(products, f), productHeader...).RenderMarkdown()
	data.CountriesTable = resultTable(countries != nil, countryRows(countries, f), countryHeader...).RenderMarkdown()
	data.MonthsTable = resultTable(months != nil, monthRows(months, f), monthHeader...).RenderMarkdown()

	var md bytes.Buffer
	if err := markdownTemplate.Execute(&md, data); err != nil {
		return nil, NewErrorContext("render report", "").Error(err)
	}

	return &Report{
		Markdown: md.String(),
		Console:  renderConsole(data, products, countries, months, f),
		Charts:   buildCharts(products, countries, months),
		Complete: data.Complete,
	}, nil
}

// reportData feeds markdownTemplate. Every field is preformatted text.
type reportData struct {
	GeneratedAt    string
	RunID          string
	Complete       bool
	Problems       []string
	TotalSales     string
	AverageOrder   string
	TopCountry     string
	TopProduct     string
	Trend          string
	Recommendation string
	Invoices       string
	Rows           string
	Stats          [][2]string
	ProductsTable  string
	CountriesTable string
	MonthsTable    string
}

var markdownTemplate = template.Must(template.New("report").Parse(`# Sales report

Generated {{.GeneratedAt}}{{if .RunID}} (run {{.RunID}}){{end}}.

{{if .Complete}}Run status: complete
{{else}}Run status: incomplete

The following stages failed; figures depending on them are missing:
{{range .Problems}}
- {{.}}{{end}}
{{end}}
## Summary

- Total sales: {{.TotalSales}} across {{.Invoices}} invoices and {{.Rows}} sale lines.
- Average order value: {{.AverageOrder}}.
- Top country by sales: {{.TopCountry}}.
- Top product by sales: {{.TopProduct}}.
- Trend: {{.Trend}}
{{if .Recommendation}}
## Recommendation

{{.Recommendation}}
{{end}}
## Top products

{{.ProductsTable}}

## Sales by country

{{.CountriesTable}}

## Monthly trend

{{.MonthsTable}}
{{if .Stats}}
## Data quality

| Step | Rows |
| --- | ---: |
{{range .Stats}}| {{index . 0}} | {{index . 1}} |
{{end}}{{end}}`))

// moneyFormatter formats amounts with a currency prefix, thousands separators and
// two decimals.
type moneyFormatter string

func (m moneyFormatter) float(v float64) string {
	if v < 0 {
		return "-" + string(m) + humanize.FormatFloat("#,###.##", -v)
	}
	return string(m) + humanize.FormatFloat("#,###.##", v)
}

func (m moneyFormatter) decimal(d decimal.Decimal) string {
	return m.float(d.Round(2).InexactFloat64())
}

// trendSentence describes the first, last and peak month of the series.
func trendSentence(months []MonthlySales, f moneyFormatter) string {
	first, last := months[0], months[len(months)-1]
	peak := first
	for _, m := range months[1:] {
		if m.TotalSales > peak.TotalSales {
			peak = m
		}
	}
	if len(months) == 1 {
		return fmt.Sprintf("only %s has sales (%s).", first.Month, f.float(first.TotalSales))
	}
	return fmt.Sprintf("sales went from %s in %s to %s in %s, peaking at %s in %s.",
		f.float(first.TotalSales), first.Month,
		f.float(last.TotalSales), last.Month,
		f.float(peak.TotalSales), peak.Month)
}

func statsRows(s CleanStats) [][2]string {
	return [][2]string{
		{"Rows read", humanize.Comma(int64(s.RowsIn))},
		{"Dropped: missing customer or description", humanize.Comma(int64(s.DroppedNull))},
		{"Dropped: non-positive quantity", humanize.Comma(int64(s.DroppedQuantity))},
		{"Dropped: non-positive unit price", humanize.Comma(int64(s.DroppedUnitPrice))},
		{"Dropped: duplicate rows", humanize.Comma(int64(s.DroppedDuplicate))},
		{"Rows kept", humanize.Comma(int64(s.RowsOut))},
	}
}

// resultTable builds a table for one query result. An absent result gets a
// single "not available" row so the reader sees the gap.
func resultTable(present bool, rows []table.Row, header ...string) table.Writer {
	w := table.NewWriter()
	head := make(table.Row, len(header))
	for i, h := range header {
		head[i] = h
	}
	w.AppendHeader(head)

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := 2; i <= len(header); i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	w.SetColumnConfigs(configs)

	if !present {
		filler := make(table.Row, len(header))
		filler[0] = notAvailable
		for i := 1; i < len(filler); i++ {
			filler[i] = ""
		}
		w.AppendRow(filler)
		return w
	}
	w.AppendRows(rows)
	return w
}

var (
	productHeader = []string{"Description", "Total sales"}
	countryHeader = []string{"Country", "Invoices", "Total sales"}
	monthHeader   = []string{"Month", "Total sales"}
)

func productRows(ps []ProductSales, f moneyFormatter) []table.Row {
	rows := make([]table.Row, len(ps))
	for i, p := range ps {
		rows[i] = table.Row{p.Description, f.float(p.TotalSales)}
	}
	return rows
}

func countryRows(cs []CountrySales, f moneyFormatter) []table.Row {
	rows := make([]table.Row, len(cs))
	for i, c := range cs {
		rows[i] = table.Row{c.Country, humanize.Comma(c.TransactionCount), f.float(c.TotalSales)}
	}
	return rows
}

func monthRows(ms []MonthlySales, f moneyFormatter) []table.Row {
	rows := make([]table.Row, len(ms))
	for i, m := range ms {
		rows[i] = table.Row{m.Month, f.float(m.TotalSales)}
	}
	return rows
}

func renderConsole(data reportData, ps []ProductSales, cs []CountrySales, ms []MonthlySales, f moneyFormatter) string {
	var b strings.Builder
	if data.Complete {
		b.WriteString("Run status: complete\n")
	} else {
		b.WriteString("Run status: incomplete\n")
		for _, p := range data.Problems {
			b.WriteString("  - " + p + "\n")
		}
	}
	b.WriteString("\n")

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.AppendRows([]table.Row{
		{"Total sales", data.TotalSales},
		{"Average order value", data.AverageOrder},
		{"Top country", data.TopCountry},
		{"Top product", data.TopProduct},
	})
	b.WriteString(summary.Render() + "\n\n")

	for _, section := range []struct {
		title   string
		present bool
		rows    []table.Row
		header  []string
	}{
		{"Top products", ps != nil, productRows(ps, f), productHeader},
		{"Sales by country", cs != nil, countryRows(cs, f), countryHeader},
		{"Monthly trend", ms != nil, monthRows(ms, f), monthHeader},
	} {
		w := resultTable(section.present, section.rows, section.header...)
		w.SetStyle(table.StyleLight)
		w.SetTitle(section.title)
		b.WriteString(w.Render() + "\n\n")
	}
	return b.String()
}

func projectProducts(r *QueryResult) ([]ProductSales, error) {
	if r == nil {
		return nil, nil
	}
	return r.ProductSales()
}

func projectCountries(r *QueryResult) ([]CountrySales, error) {
	if r == nil {
		return nil, nil
	}
	return r.CountrySales()
}

func projectMonths(r *QueryResult) ([]MonthlySales, error) {
	if r == nil {
		return nil, nil
	}
	return r.MonthlySales()
}
