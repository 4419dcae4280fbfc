package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/salesql"
)

var queriesFlags struct {
	table string
	top   int
}

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Print the SQL of the query catalog",
	RunE:  runQueries,
}

func init() {
	f := queriesCmd.Flags()
	f.StringVar(&queriesFlags.table, "table", "", "Relation name (default $SALESQL_TABLE or sales)")
	f.IntVar(&queriesFlags.top, "top", 0, "Row limit of the ranked queries (default $SALESQL_TOP or 5)")
}

func runQueries(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("table") {
		cfg.Table = queriesFlags.table
	}
	if cmd.Flags().Changed("top") {
		cfg.TopLimit = queriesFlags.top
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c := salesql.NewCatalog(cfg.Table, salesql.WithTopLimit(cfg.TopLimit), salesql.WithCountryLimit(cfg.TopLimit))
	fmt.Fprint(cmd.OutOrStdout(), c.SQL())
	return nil
}
