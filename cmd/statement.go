package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/expense-reimbursement/internal/statement"
	"github.com/spf13/cobra"
)

var statementCmd = &cobra.Command{
	Use:   "statement",
	Short: "Bank statement tools",
	Long:  `Parse bank statement files and import them for an owner`,
}

var parseStatementCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a statement file without touching the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return parseStatement(args[0])
	},
}

var importStatementCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a statement file for an owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importStatement(args[0])
	},
}

var (
	statementFormat string
	statementOwner  int64
)

func parseStatement(path string) error {
	parser := statement.DefaultRegistry().Get(statementFormat)
	if parser == nil {
		return fmt.Errorf("unknown statement format %q", statementFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open statement %q: %w", path, err)
	}
	defer f.Close()

	res, err := parser.Parse(f, time.Now())
	if err != nil {
		return fmt.Errorf("parse statement %q: %w", path, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FITID\tDATE\tTYPE\tAMOUNT\tDESCRIPTION")
	for _, rec := range res.Records {
		date := rec.Date.Format("2006-01-02")
		if rec.DateFallback {
			date += "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.FITID, date, rec.Type, rec.Amount.StringFixed(2), rec.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d records, %d malformed, %d date fallbacks (marked *)\n",
		len(res.Records), res.SkippedMalformed, res.DateFallbacks())
	return nil
}

func importStatement(path string) error {
	if statementOwner <= 0 {
		return fmt.Errorf("--owner is required")
	}

	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open statement %q: %w", path, err)
	}
	defer f.Close()

	summary, err := deps.Reconciliation.Import(ctx, statementOwner, statementFormat, f)
	if err != nil {
		return err
	}

	deps.Logger.Info("statement imported",
		"file", path,
		"owner_id", statementOwner,
		"parsed", summary.Parsed,
		"inserted", summary.Inserted,
		"skipped_duplicates", summary.SkippedDuplicates,
		"skipped_malformed", summary.SkippedMalformed,
		"date_fallbacks", summary.DateFallbacks)
	return nil
}

func init() {
	statementCmd.PersistentFlags().StringVar(&statementFormat, "format", "ofx", "statement file format")
	importStatementCmd.Flags().Int64Var(&statementOwner, "owner", 0, "owner user id")

	statementCmd.AddCommand(parseStatementCmd)
	statementCmd.AddCommand(importStatementCmd)

	rootCmd.AddCommand(statementCmd)
}
