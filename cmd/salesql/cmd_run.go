package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/salesql"
	"github.com/nao1215/salesql/config"
)

var runFlags struct {
	input             string
	dbPath            string
	queries           string
	outDir            string
	table             string
	top               int
	recommendation    string
	currency          string
	encoding          string
	exportFormat      string
	exportCompression string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline and write the database, queries and report",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.input, "input", "i", "", "Transaction CSV, optionally .gz/.bz2/.xz/.zst (default $SALESQL_INPUT or data.csv)")
	f.StringVar(&runFlags.dbPath, "db", "", "SQLite database output path (default $SALESQL_DB or ecommerce.db)")
	f.StringVar(&runFlags.queries, "queries", "", "SQL text output path (default $SALESQL_QUERIES or queries.sql)")
	f.StringVarP(&runFlags.outDir, "out", "o", "", "Directory for report.md, charts.xlsx and exports (default $SALESQL_OUT or .)")
	f.StringVar(&runFlags.table, "table", "", "Relation name (default $SALESQL_TABLE or sales)")
	f.IntVar(&runFlags.top, "top", 0, "Row limit of the ranked queries (default $SALESQL_TOP or 5)")
	f.StringVar(&runFlags.recommendation, "recommendation", "", "Business recommendation printed in the report")
	f.StringVar(&runFlags.currency, "currency", "", "Currency symbol for amounts (default $SALESQL_CURRENCY or £)")
	f.StringVar(&runFlags.encoding, "encoding", "", "Input encoding: latin1, windows1252, utf8 (default $SALESQL_ENCODING or latin1)")
	f.StringVar(&runFlags.exportFormat, "export-format", "", "Also export the relation: none, csv, parquet")
	f.StringVar(&runFlags.exportCompression, "export-compression", "", "Export compression: none, gz, xz, zstd")
}

// applyRunFlags overrides configuration values with flags given on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("input", &cfg.Input, runFlags.input)
	set("db", &cfg.Database, runFlags.dbPath)
	set("queries", &cfg.Queries, runFlags.queries)
	set("out", &cfg.ReportDir, runFlags.outDir)
	set("table", &cfg.Table, runFlags.table)
	set("recommendation", &cfg.Recommendation, runFlags.recommendation)
	set("currency", &cfg.Currency, runFlags.currency)
	set("encoding", &cfg.Encoding, runFlags.encoding)
	set("export-format", &cfg.ExportFormat, runFlags.exportFormat)
	set("export-compression", &cfg.ExportCompression, runFlags.exportCompression)
	if f.Changed("top") {
		cfg.TopLimit = runFlags.top
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	enc, err := salesql.ParseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}
	format, err := salesql.ParseOutputFormat(cfg.ExportFormat)
	if err != nil {
		return err
	}
	compression, err := salesql.ParseCompressionType(cfg.ExportCompression)
	if err != nil {
		return err
	}

	p, err := salesql.NewPipeline().
		WithInput(cfg.Input).
		WithDatabase(cfg.Database).
		WithQueryFile(cfg.Queries).
		WithReportDir(cfg.ReportDir).
		WithTable(cfg.Table).
		WithTopLimit(cfg.TopLimit).
		WithEncoding(enc).
		WithCurrency(cfg.Currency).
		WithRecommendation(cfg.Recommendation).
		WithExport(salesql.NewDumpOptions().WithFormat(format).WithCompression(compression)).
		WithLogger(logger).
		Build(cmd.Context())
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Report != nil {
		fmt.Fprint(out, res.Report.Console)
	}
	for _, path := range res.Files {
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	if !res.Complete() {
		return fmt.Errorf("%w: %w", errIncomplete, res.Err())
	}
	return nil
}
