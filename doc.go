// Package salesql turns a flat CSV of e-commerce transactions into a SQLite
// database, a fixed catalog of analytical SQL queries, summary statistics
// and a markdown report with charts.
//
// A run is a single linear pass:
//
//	Load -> Clean -> Sink.Load -> Analyze -> Catalog.RunAll -> cross-check -> Render -> Save
//
// # Features
//
//   - Latin-1, Windows-1252 or UTF-8 input, optionally compressed (gzip, bzip2, xz, zstandard)
//   - Header validated against a declared schema; undeclared columns are ignored
//   - Ordered cleaning: null keys, non-positive quantities and prices, date parsing, exact duplicates
//   - In-memory SQLite relation rebuilt on every run and saved atomically with VACUUM INTO
//   - Three ranked/bucketed queries whose SQL text is saved verbatim
//   - Markdown report, console tables and an XLSX workbook with native charts
//   - Optional CSV (compressed) or Parquet export of the cleaned relation
//
// # Basic Usage
//
//	p, err := salesql.NewPipeline().
//	    WithInput("data.csv").
//	    WithDatabase("out/ecommerce.db").
//	    WithQueryFile("out/queries.sql").
//	    WithReportDir("out").
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := p.Run(ctx)
//	if err != nil {
//	    log.Fatal(err) // fatal: input, schema or database
//	}
//	if !res.Complete() {
//	    log.Println(res.Err()) // a query, cross-check or save failed
//	}
//
// # Errors
//
// Every stage error wraps one of the sentinel errors (ErrInputNotFound,
// ErrInputParse, ErrSchemaMismatch, ErrDatabase, ErrQueryExecution,
// ErrPersistence, ErrCrossCheckMismatch). IsFatal tells which of them end a run.
//
// The stages are also usable on their own:
//
//	store, err := salesql.Load(ctx, "data.csv.gz")
//	txns, stats, err := salesql.Clean(store.Records())
//	sink, err := salesql.OpenSink(ctx)
//	defer sink.Close()
//	err = sink.Load(ctx, "sales", txns)
//	results := salesql.NewCatalog("sales").RunAll(ctx, sink)
package salesql
