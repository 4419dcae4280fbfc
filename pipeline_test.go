package salesql

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// newTestPipeline writes every output into a fresh directory.
func newTestPipeline(t *testing.T, input string) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	p := NewPipeline().
		WithInput(input).
		WithDatabase(filepath.Join(dir, "ecommerce.db")).
		WithQueryFile(filepath.Join(dir, "queries.sql")).
		WithReportDir(dir)
	p.now = func() time.Time { return reportTime }
	return p, dir
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	core, logs := observer.New(zap.InfoLevel)
	p, dir := newTestPipeline(t, sampleCSV)
	p.WithLogger(zap.New(core)).
		WithRecommendation("Push snack boxes in Germany.").
		WithExport(NewDumpOptions().WithCompression(CompressionGZ))

	res, err := p.Run(ctx)
	require.NoError(t, err)
	require.True(t, res.Complete(), res.Problems())
	assert.NoError(t, res.Err())

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, sampleRowsOut, res.Stats.RowsOut)
	assert.Len(t, res.Transactions, sampleRowsOut)
	assert.True(t, res.Summary.TotalSales.Equal(decimal.RequireFromString(sampleTotalSales)))
	assert.Equal(t, sampleTopCountry, res.Summary.TopCountry)
	assert.True(t, res.Results.OK())

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "ecommerce.db"),
		filepath.Join(dir, "queries.sql"),
		filepath.Join(dir, "sales.csv.gz"),
		filepath.Join(dir, ReportFileName),
		filepath.Join(dir, WorkbookFileName),
	}, res.Files)
	for _, f := range res.Files {
		assert.FileExists(t, f)
	}

	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Complete)
	md := string(mustReadFile(t, filepath.Join(dir, ReportFileName)))
	assert.Equal(t, res.Report.Markdown, md)
	assert.Contains(t, md, "(run "+res.RunID+")")
	assert.Contains(t, md, "Push snack boxes in Germany.")
	assert.Contains(t, md, "| Rows kept | 8 |")

	assert.Equal(t, NewCatalog(DefaultTableName).SQL(), string(mustReadFile(t, filepath.Join(dir, "queries.sql"))))

	finished := logs.FilterMessage("run finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, res.RunID, finished[0].ContextMap()["run_id"])
	assert.Equal(t, true, finished[0].ContextMap()["complete"])
}

func TestPipeline_NegativeQuantityAbsentEverywhere(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, dir := newTestPipeline(t, sampleCSV)
	res, err := p.Run(ctx)
	require.NoError(t, err)

	for _, tr := range res.Transactions {
		assert.NotEqual(t, "C536379", tr.InvoiceNo)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "ecommerce.db"))
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE InvoiceNo = 'C536379' OR Quantity < 0`).Scan(&n))
	assert.Zero(t, n)

	assert.NotContains(t, res.Report.Markdown, "Discount")
}

func TestPipeline_EmptyInput(t *testing.T) {
	t.Parallel()

	input := writeTestFile(t, t.TempDir(), "empty.csv", []byte(sampleHeader))
	p, _ := newTestPipeline(t, input)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Complete(), res.Problems())

	assert.True(t, res.Summary.TotalSales.IsZero())
	_, err = res.Summary.AverageOrderValueOrErr()
	assert.ErrorIs(t, err, ErrUndefinedAverage)
	assert.Contains(t, res.Report.Markdown, "- Average order value: n/a.")
	assert.Zero(t, res.Results.TopProducts.Len())
}

func TestPipeline_FatalStopsBeforeOutput(t *testing.T) {
	t.Parallel()

	input := writeTestFile(t, t.TempDir(), "bad.csv",
		[]byte(sampleHeader+"536365,71053,WHITE METAL LANTERN,6,31/31/2010 8:26,3.39,17850,United Kingdom\n"))
	p, dir := newTestPipeline(t, input)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInputParse)
	assert.True(t, IsFatal(err))

	assert.NoFileExists(t, filepath.Join(dir, "ecommerce.db"))
	assert.NoFileExists(t, filepath.Join(dir, ReportFileName))
}

func TestPipeline_PersistenceFailureIsIncomplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, dir := newTestPipeline(t, sampleCSV)
	_, err := p.Build(ctx)
	require.NoError(t, err)

	// The database path turns into a directory after validation.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ecommerce.db"), 0o750))

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.False(t, res.Complete())
	assert.ErrorIs(t, res.Err(), ErrPersistence)
	require.Len(t, res.Problems(), 1)
	assert.Contains(t, res.Problems()[0], "save database")

	// The other outputs are still written, and the report says what is missing.
	assert.Contains(t, res.Files, filepath.Join(dir, "queries.sql"))
	assert.Contains(t, res.Files, filepath.Join(dir, ReportFileName))
	assert.False(t, res.Report.Complete)
	assert.Contains(t, res.Report.Markdown, "Run status: incomplete")
	assert.True(t, strings.Contains(res.Report.Markdown, "save database"))
}

func TestPipeline_WorkbookFailureIsInReport(t *testing.T) {
	t.Parallel()

	p, dir := newTestPipeline(t, sampleCSV)
	require.NoError(t, os.Mkdir(filepath.Join(dir, WorkbookFileName), 0o750))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Complete())
	assert.ErrorIs(t, res.Err(), ErrPersistence)
	assert.NotContains(t, res.Files, filepath.Join(dir, WorkbookFileName))

	// The markdown on disk must not claim a complete run.
	require.Contains(t, res.Files, filepath.Join(dir, ReportFileName))
	md := string(mustReadFile(t, filepath.Join(dir, ReportFileName)))
	assert.Equal(t, res.Report.Markdown, md)
	assert.Contains(t, md, "Run status: incomplete")
	assert.Contains(t, md, "save charts")
	assert.NotContains(t, md, "Run status: complete")
}

func TestPipeline_Build(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeTestFile(t, dir, "file.txt", []byte("x"))

	tests := []struct {
		name    string
		p       *Pipeline
		wantErr error
	}{
		{"valid", NewPipeline().WithInput(sampleCSV), nil},
		{"no input", NewPipeline(), ErrInputNotFound},
		{"missing input", NewPipeline().WithInput(filepath.Join(dir, "absent.csv")), ErrInputNotFound},
		{"database is a directory", NewPipeline().WithInput(sampleCSV).WithDatabase(dir), nil},
		{"report dir is a file", NewPipeline().WithInput(sampleCSV).WithReportDir(file), nil},
		{"zero top", NewPipeline().WithInput(sampleCSV).WithTopLimit(0), nil},
		{"negative tolerance", NewPipeline().WithInput(sampleCSV).WithTolerance(-1), nil},
		{"export without dir", NewPipeline().WithInput(sampleCSV).WithExport(NewDumpOptions()), nil},
		{"invalid export", NewPipeline().WithInput(sampleCSV).WithReportDir(dir).
			WithExport(NewDumpOptions().WithCompression(CompressionBZ2)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.p.Build(context.Background())
			if tt.name == "valid" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPipeline_RunBuildsOnDemand(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline().Run(context.Background())
	assert.ErrorIs(t, err, ErrInputNotFound)

	res, err := NewPipeline().WithInput(sampleCSV).WithTopLimit(2).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Complete())
	assert.Empty(t, res.Files)
	assert.Equal(t, 2, res.Results.TopProducts.Len())
}
