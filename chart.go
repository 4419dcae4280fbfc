package salesql

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ChartKind is the visual form of a chart.
type ChartKind int

const (
	// ChartBar is a horizontal bar chart; categories run down the y axis
	ChartBar ChartKind = iota
	// ChartLine is a line chart over ordered categories
	ChartLine
)

// String returns the name of the chart kind
func (k ChartKind) String() string {
	if k == ChartLine {
		return "line"
	}
	return "bar"
}

// Chart describes what to draw. WriteWorkbook decides how.
type Chart struct {
	Name       string
	Title      string
	Kind       ChartKind
	XLabel     string
	YLabel     string
	Categories []string
	Values     []float64
}

// buildCharts returns one chart per present result, in catalog order.
func buildCharts(ps []ProductSales, cs []CountrySales, ms []MonthlySales) []Chart {
	var charts []Chart
	if ps != nil {
		c := Chart{
			Name:   QueryTopProducts,
			Title:  "Top products by sales",
			Kind:   ChartBar,
			XLabel: "TotalSales",
			YLabel: "Description",
		}
		for _, p := range ps {
			c.Categories = append(c.Categories, p.Description)
			c.Values = append(c.Values, p.TotalSales)
		}
		charts = append(charts, c)
	}
	if cs != nil {
		c := Chart{
			Name:   QuerySalesByCountry,
			Title:  "Sales by country",
			Kind:   ChartBar,
			XLabel: "TotalSales",
			YLabel: "Country",
		}
		for _, s := range cs {
			c.Categories = append(c.Categories, s.Country)
			c.Values = append(c.Values, s.TotalSales)
		}
		charts = append(charts, c)
	}
	if ms != nil {
		c := Chart{
			Name:   QueryMonthlyTrend,
			Title:  "Monthly sales trend",
			Kind:   ChartLine,
			XLabel: "Month",
			YLabel: "TotalSales",
		}
		for _, m := range ms {
			c.Categories = append(c.Categories, m.Month)
			c.Values = append(c.Values, m.TotalSales)
		}
		charts = append(charts, c)
	}
	return charts
}

// defaultSheet is created by excelize.NewFile.
const defaultSheet = "Sheet1"

// WriteWorkbook writes an XLSX workbook with one sheet per chart holding its
// data and a native Excel chart drawn from that data.
func WriteWorkbook(w io.Writer, rep *Report) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if len(rep.Charts) == 0 {
		if err := f.SetCellValue(defaultSheet, "A1", notAvailable); err != nil {
			return err
		}
		_, err = f.WriteTo(w)
		return err
	}

	for _, c := range rep.Charts {
		if err := writeChartSheet(f, c); err != nil {
			return fmt.Errorf("chart %s: %w", c.Name, err)
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return err
	}
	idx, err := f.GetSheetIndex(rep.Charts[0].Name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	_, err = f.WriteTo(w)
	return err
}

func writeChartSheet(f *excelize.File, c Chart) error {
	if _, err := f.NewSheet(c.Name); err != nil {
		return err
	}

	catLabel, valLabel := c.YLabel, c.XLabel
	if c.Kind == ChartLine {
		catLabel, valLabel = c.XLabel, c.YLabel
	}
	if err := f.SetSheetRow(c.Name, "A1", &[]any{catLabel, valLabel}); err != nil {
		return err
	}
	for i := range c.Categories {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(c.Name, cell, &[]any{c.Categories[i], c.Values[i]}); err != nil {
			return err
		}
	}
	if len(c.Values) == 0 {
		return nil
	}

	// Bars run horizontally and Excel draws the first category at the
	// bottom, so the category axis is reversed to put rank 1 on top.
	chartType, reverse := excelize.Bar, true
	if c.Kind == ChartLine {
		chartType, reverse = excelize.Line, false
	}
	last := len(c.Values) + 1
	return f.AddChart(c.Name, "D2", &excelize.Chart{
		Type: chartType,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("'%s'!$B$1", c.Name),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", c.Name, last),
				Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", c.Name, last),
			},
		},
		Title:  []excelize.RichTextRun{{Text: c.Title}},
		XAxis:  excelize.ChartAxis{ReverseOrder: reverse, Title: []excelize.RichTextRun{{Text: catLabel}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: valLabel}}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}
