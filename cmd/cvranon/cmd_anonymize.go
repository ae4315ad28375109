package main

import (
	"encoding/json"
	"fmt"
	"os"

	"cvranon/internal/anonymize"
	"cvranon/internal/config"
	"cvranon/internal/cvr"
	"cvranon/internal/ledger"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	minBallots   int
	styleColumn  int
	headerLength int
	stylePrefix  int
	policy       string
	summarize    bool
	reportPath   string
	recordRun    bool
)

// anonymizeCmd anonymizes a CVR file
var anonymizeCmd = &cobra.Command{
	Use:   "anonymize <input> <output>",
	Short: "Write an anonymized copy of a CVR file",
	Long: `Reads a CVR file (Dominion-style CSV, or long-format Parquet by extension),
merges rare ballot styles into aggregate rows, verifies that every vote
total is unchanged, and writes the result atomically.

Nothing is written when the run fails.

Example:
  cvranon anonymize cvr.csv cvr_anon.csv --min-ballots 10
  cvranon anonymize votes.parquet out.csv --policy similarity --report report.json`,
	Args: cobra.ExactArgs(2),
	RunE: runAnonymize,
}

func addAnonymizeFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().Anonymize
	cmd.Flags().IntVarP(&minBallots, "min-ballots", "m", d.MinBallots, "Minimum ballots behind every published row")
	cmd.Flags().IntVar(&styleColumn, "stylecol", d.StyleColumn, "Index of the declared style column")
	cmd.Flags().IntVar(&headerLength, "headerlen", d.HeaderLength, "Number of identifying columns before the vote columns")
	cmd.Flags().IntVar(&stylePrefix, "style-prefix", d.StylePrefixLength, "Compare declared styles on this many leading characters (0 = whole value)")
	cmd.Flags().StringVar(&policy, "policy", d.Policy, "Aggregation policy: single or similarity")
	cmd.Flags().BoolVarP(&summarize, "summarize", "s", false, "Print a summary of the input before anonymizing")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the run report as JSON to this path")
	cmd.Flags().BoolVar(&recordRun, "ledger", false, "Record the run in the ledger")
}

// applyAnonymizeFlags overrides config values with flags the user set.
func applyAnonymizeFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("min-ballots") {
		c.Anonymize.MinBallots = minBallots
	}
	if f.Changed("stylecol") {
		c.Anonymize.StyleColumn = styleColumn
	}
	if f.Changed("headerlen") {
		c.Anonymize.HeaderLength = headerLength
	}
	if f.Changed("style-prefix") {
		c.Anonymize.StylePrefixLength = stylePrefix
	}
	if f.Changed("policy") {
		c.Anonymize.Policy = policy
	}
	if f.Changed("ledger") {
		c.Ledger.Enabled = recordRun
	}
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]
	ctx := commandContext(cmd)

	c := currentConfig()
	applyAnonymizeFlags(cmd, &c)
	if err := c.Validate(); err != nil {
		return err
	}

	logger.Info("Anonymizing", zap.String("input", input), zap.String("output", output),
		zap.Int("min_ballots", c.Anonymize.MinBallots), zap.String("policy", c.Anonymize.Policy))

	tbl, err := cvr.Load(ctx, input)
	if err != nil {
		return err
	}
	opts := anonymize.OptionsFromConfig(c.Anonymize)

	if summarize {
		report, err := anonymize.Describe(tbl, opts)
		if err != nil {
			return err
		}
		fmt.Println(renderSummary(input, report))
	}

	res, err := anonymize.Run(tbl, opts)
	if err != nil {
		return err
	}

	// The report goes first so a failed report never leaves a published CSV.
	if reportPath != "" {
		if err := writeReport(reportPath, res.Report); err != nil {
			return err
		}
	}
	if err := cvr.SaveCSVFile(output, res.Table, c.Output.PreserveLineTerminator); err != nil {
		return err
	}

	for _, w := range res.Report.Warnings {
		fmt.Fprintln(os.Stderr, warnStyle.Render("warning:"), w.Message)
	}
	fmt.Println(renderResult(output, res.Report))

	if c.Ledger.Enabled {
		if err := recordLedger(cmd, c.Ledger.Path, input, output, res.Report); err != nil {
			// The output is already published; a ledger failure does not undo it.
			logger.Warn("Failed to record run", zap.Error(err))
			fmt.Fprintln(os.Stderr, warnStyle.Render("warning:"), "run not recorded:", err)
		}
	}
	return nil
}

func writeReport(path string, report *anonymize.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func recordLedger(cmd *cobra.Command, path, input, output string, report *anonymize.Report) error {
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	run := ledger.RunFromReport(input, output, report)
	var g errgroup.Group
	g.Go(func() (err error) {
		run.InputDigest, err = ledger.DigestFile(input)
		return err
	})
	g.Go(func() (err error) {
		run.OutputDigest, err = ledger.DigestFile(output)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := l.Record(commandContext(cmd), run); err != nil {
		return err
	}
	logger.Debug("Recorded run", zap.String("id", run.ID), zap.String("ledger", l.Path()))
	fmt.Println(mutedStyle.Render("recorded run " + run.ID + " in " + l.Path()))
	return nil
}
