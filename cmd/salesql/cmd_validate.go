package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/salesql"
	"github.com/nao1215/salesql/config"
)

var validateFlags struct {
	input    string
	encoding string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an input file against the declared schema without writing anything",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateFlags.input, "input", "i", "", "Transaction CSV (default $SALESQL_INPUT or data.csv)")
	f.StringVar(&validateFlags.encoding, "encoding", "", "Input encoding (default $SALESQL_ENCODING or latin1)")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("input") {
		cfg.Input = validateFlags.input
	}
	if cmd.Flags().Changed("encoding") {
		cfg.Encoding = validateFlags.encoding
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
	rep, err := salesql.ValidateInput(cmd.Context(), cfg.Input,
		[]salesql.LoadOption{salesql.WithEncoding(enc), salesql.WithLoadLogger(logger)},
		salesql.WithCleanLogger(logger))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(rep.Path)
	t.AppendRows([]table.Row{
		{"Columns", strings.Join(rep.Columns, ", ")},
		{"Ignored columns", strings.Join(rep.ExtraColumns, ", ")},
		{"Rows read", rep.Stats.RowsIn},
		{"Rows kept", rep.Stats.RowsOut},
		{"Rows dropped", rep.Stats.Dropped()},
	})
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
