package salesql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nao1215/salesql/domain/model"
)

// DefaultTableName is the relation the cleaned transactions are stored in.
const DefaultTableName = "sales"

// Pipeline runs ingest, cleaning, the relational sink, the query catalog,
// the analyzer, the report and persistence in one linear pass.
//
// The typical usage pattern is:
//
//	p, err := salesql.NewPipeline().
//		WithInput("data.csv").
//		WithDatabase("out/sales.db").
//		WithQueryFile("out/queries.sql").
//		WithReportDir("out").
//		Build(ctx)
//	if err != nil {
//		return err
//	}
//	result, err := p.Run(ctx)
type Pipeline struct {
	input          string
	dbPath         string
	queryPath      string
	reportDir      string
	table          string
	topLimit       int
	encoding       Encoding
	currency       string
	recommendation string
	export         DumpOptions
	dateLayouts    []string
	tolerance      float64
	logger         *zap.Logger
	now            func() time.Time
	built          bool
}

// NewPipeline creates a pipeline with default settings.
func NewPipeline() *Pipeline {
	return &Pipeline{
		table:     DefaultTableName,
		topLimit:  DefaultTopLimit,
		encoding:  EncodingLatin1,
		currency:  DefaultCurrency,
		export:    DumpOptions{Format: OutputFormatNone},
		tolerance: DefaultCrossCheckTolerance,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
}

// WithInput sets the transaction CSV to read.
func (p *Pipeline) WithInput(path string) *Pipeline {
	p.input = path
	return p
}

// WithDatabase sets where the SQLite database is saved. Empty skips it.
func (p *Pipeline) WithDatabase(path string) *Pipeline {
	p.dbPath = path
	return p
}

// WithQueryFile sets where the catalog SQL is saved. Empty skips it.
func (p *Pipeline) WithQueryFile(path string) *Pipeline {
	p.queryPath = path
	return p
}

// WithReportDir sets the directory for report.md, charts.xlsx and the
// optional export. Empty skips them.
func (p *Pipeline) WithReportDir(dir string) *Pipeline {
	p.reportDir = dir
	return p
}

// WithTable sets the relation name.
func (p *Pipeline) WithTable(name string) *Pipeline {
	p.table = name
	return p
}

// WithTopLimit sets the row limit of the ranked queries.
func (p *Pipeline) WithTopLimit(n int) *Pipeline {
	p.topLimit = n
	return p
}

// WithEncoding sets the input text encoding.
func (p *Pipeline) WithEncoding(enc Encoding) *Pipeline {
	p.encoding = enc
	return p
}

// WithCurrency sets the currency symbol used in the report.
func (p *Pipeline) WithCurrency(symbol string) *Pipeline {
	p.currency = symbol
	return p
}

// WithRecommendation sets the business recommendation printed in the report.
func (p *Pipeline) WithRecommendation(text string) *Pipeline {
	p.recommendation = text
	return p
}

// WithExport enables a flat export of the relation into the report directory.
func (p *Pipeline) WithExport(opts DumpOptions) *Pipeline {
	p.export = opts
	return p
}

// WithDateLayouts replaces the accepted InvoiceDate layouts.
func (p *Pipeline) WithDateLayouts(layouts ...string) *Pipeline {
	p.dateLayouts = layouts
	return p
}

// WithTolerance sets the absolute tolerance of the TopProducts cross-check.
func (p *Pipeline) WithTolerance(tol float64) *Pipeline {
	p.tolerance = tol
	return p
}

// WithLogger sets the logger. A nil logger is ignored.
func (p *Pipeline) WithLogger(l *zap.Logger) *Pipeline {
	if l != nil {
		p.logger = l
	}
	return p
}

// Build validates the configuration.
func (p *Pipeline) Build(_ context.Context) (*Pipeline, error) {
	v := newValidator()
	if err := v.validateInputPath(p.input); err != nil {
		return nil, err
	}
	ec := NewErrorContext("build pipeline", p.input)
	for _, path := range []string{p.dbPath, p.queryPath} {
		if err := v.validateOutputPath(path); err != nil {
			return nil, ec.Error(err)
		}
	}
	if err := v.validateOutputDir(p.reportDir); err != nil {
		return nil, ec.Error(err)
	}
	if p.topLimit <= 0 {
		return nil, ec.WithDetails("top limit must be positive").Error(nil)
	}
	if p.tolerance < 0 {
		return nil, ec.WithDetails("tolerance must not be negative").Error(nil)
	}
	if err := p.export.Validate(); err != nil {
		return nil, ec.Error(err)
	}
	if p.export.Enabled() && p.reportDir == "" {
		return nil, ec.WithDetails("export requires a report directory").Error(nil)
	}
	p.built = true
	return p, nil
}

// RunResult is what a run produced. Problems are the non-fatal failures;
// any problem makes the run incomplete.
type RunResult struct {
	RunID        string
	Stats        CleanStats
	Summary      Summary
	Results      Results
	Report       *Report
	Transactions []model.Transaction
	Files        []string
	Errors       []error
}

// Complete reports whether every stage succeeded.
func (r *RunResult) Complete() bool {
	return len(r.Errors) == 0
}

// Err joins the non-fatal failures, or returns nil.
func (r *RunResult) Err() error {
	return errors.Join(r.Errors...)
}

// Problems renders the non-fatal failures as text.
func (r *RunResult) Problems() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// Run executes the pipeline. A fatal error stops the run and is returned.
// Non-fatal failures are collected in the result and the run continues.
func (p *Pipeline) Run(ctx context.Context) (res *RunResult, err error) {
	if !p.built {
		if _, err := p.Build(ctx); err != nil {
			return nil, err
		}
	}

	res = &RunResult{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", res.RunID))
	log.Info("run started", zap.String("input", p.input))

	store, err := Load(ctx, p.input, p.loadOptions(log)...)
	if err != nil {
		return nil, err
	}

	txns, stats, err := Clean(store.Records(), p.cleanOptions(log)...)
	if err != nil {
		return nil, err
	}
	res.Stats = stats
	res.Transactions = txns

	sink, err := OpenSink(ctx)
	if err != nil {
		return nil, err
	}
	sink.WithLogger(log)
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			cerr = NewErrorContext("close database", "").Wrap(ErrDatabase, cerr)
			if err != nil {
				err = errors.Join(err, cerr)
				return
			}
			res.Errors = append(res.Errors, cerr)
		}
	}()

	if err := sink.Load(ctx, p.table, txns); err != nil {
		return nil, err
	}

	res.Summary = Analyze(txns)

	catalog := NewCatalog(p.table, WithTopLimit(p.topLimit), WithCountryLimit(p.topLimit), WithCatalogLogger(log))
	res.Results = catalog.RunAll(ctx, sink)
	for _, name := range []string{QueryTopProducts, QuerySalesByCountry, QueryMonthlyTrend} {
		if qerr, ok := res.Results.Errors[name]; ok {
			res.Errors = append(res.Errors, qerr)
		}
	}

	if res.Results.TopProducts != nil {
		sqlRows, perr := res.Results.TopProducts.ProductSales()
		if perr == nil {
			perr = CrossCheckTopProducts(sqlRows, TopProductsInMemory(txns, p.topLimit), p.tolerance)
		}
		if perr != nil {
			log.Warn("cross-check failed", zap.Error(perr))
			res.Errors = append(res.Errors, perr)
		}
	}

	p.persistData(ctx, sink, catalog, res, log)

	render := func() (*Report, error) {
		return Render(ReportInput{
			TopProducts:    res.Results.TopProducts,
			SalesByCountry: res.Results.SalesByCountry,
			MonthlyTrend:   res.Results.MonthlyTrend,
			Summary:        res.Summary,
			Stats:          &res.Stats,
			Recommendation: p.recommendation,
			Currency:       p.currency,
			Problems:       res.Problems(),
			GeneratedAt:    p.now(),
			RunID:          res.RunID,
		})
	}
	rep, rerr := render()
	if rerr != nil {
		res.Errors = append(res.Errors, rerr)
		return res, nil
	}
	res.Report = rep

	if p.reportDir != "" {
		p.persistReport(res, render, log)
	}

	log.Info("run finished",
		zap.Bool("complete", res.Complete()),
		zap.Int("problems", len(res.Errors)),
		zap.Strings("files", res.Files),
	)
	return res, nil
}

func (p *Pipeline) loadOptions(log *zap.Logger) []LoadOption {
	return []LoadOption{WithEncoding(p.encoding), WithLoadLogger(log)}
}

func (p *Pipeline) cleanOptions(log *zap.Logger) []CleanOption {
	opts := []CleanOption{WithCleanLogger(log)}
	if len(p.dateLayouts) > 0 {
		opts = append(opts, WithDateLayouts(p.dateLayouts...))
	}
	return opts
}

// Validate loads and cleans the input with the settings Run would use and
// writes nothing.
func (p *Pipeline) Validate(ctx context.Context) (*InputReport, error) {
	if !p.built {
		if _, err := p.Build(ctx); err != nil {
			return nil, err
		}
	}
	return ValidateInput(ctx, p.input, p.loadOptions(p.logger), p.cleanOptions(p.logger)...)
}

// persistData saves the database, the query text and the optional export.
// Failures are recorded on res; the in-memory results stay usable.
func (p *Pipeline) persistData(ctx context.Context, sink *Sink, catalog *Catalog, res *RunResult, log *zap.Logger) {
	record := func(path string, err error) {
		if err != nil {
			log.Error("persistence failed", zap.String("path", path), zap.Error(err))
			res.Errors = append(res.Errors, err)
			return
		}
		res.Files = append(res.Files, path)
	}

	if p.dbPath != "" {
		record(p.dbPath, SaveDatabase(ctx, sink, p.dbPath))
	}
	if p.queryPath != "" {
		record(p.queryPath, SaveQueries(catalog, p.queryPath))
	}
	if p.export.Enabled() {
		path, err := ExportTable(ctx, sink, p.table, p.reportDir, p.export)
		record(path, err)
	}
}

// persistReport writes the workbook before the markdown. When the workbook
// fails the report is rendered again so that it lists the failure.
func (p *Pipeline) persistReport(res *RunResult, render func() (*Report, error), log *zap.Logger) {
	xlsx, err := SaveWorkbook(res.Report, p.reportDir)
	if err != nil {
		log.Error("saving charts failed", zap.Error(err))
		res.Errors = append(res.Errors, err)
		rep, rerr := render()
		if rerr != nil {
			res.Errors = append(res.Errors, rerr)
			return
		}
		res.Report = rep
	} else {
		res.Files = append(res.Files, xlsx)
	}

	md, err := SaveMarkdown(res.Report, p.reportDir)
	if err != nil {
		log.Error("saving report failed", zap.Error(err))
		res.Errors = append(res.Errors, err)
		return
	}
	res.Files = append(res.Files, md)
}
