package main

import (
	"fmt"

	"cvranon/internal/anonymize"
	"cvranon/internal/cvr"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// summarizeCmd prints a descriptive summary of a CVR file
var summarizeCmd = &cobra.Command{
	Use:   "summarize <input>",
	Short: "Describe the ballot styles of a CVR file",
	Long: `Prints the ballot count, the number of styles, how many styles and ballots
fall below the minimum-ballot threshold, and a table of every style.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

// stylesCmd audits declared style labels
var stylesCmd = &cobra.Command{
	Use:   "styles <input>",
	Short: "Audit declared ballot styles against the contests on each ballot",
	Long: `Prints the computed style table and a warning for every declared style
label that covers several contest sets, or contest set that appears under
several declared labels. Either can leak information the anonymization is
meant to hide.`,
	Args: cobra.ExactArgs(1),
	RunE: runStyles,
}

func describeInput(cmd *cobra.Command, input string) (*anonymize.Report, error) {
	c := currentConfig()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tbl, err := cvr.Load(commandContext(cmd), input)
	if err != nil {
		return nil, err
	}
	logger.Debug("Describing input", zap.String("input", input), zap.Int("rows", len(tbl.Rows)))
	return anonymize.Describe(tbl, anonymize.OptionsFromConfig(c.Anonymize))
}

func runSummarize(cmd *cobra.Command, args []string) error {
	report, err := describeInput(cmd, args[0])
	if err != nil {
		return err
	}
	fmt.Println(renderSummary(args[0], report))
	return nil
}

func runStyles(cmd *cobra.Command, args []string) error {
	report, err := describeInput(cmd, args[0])
	if err != nil {
		return err
	}
	fmt.Println(renderStyleTable(report.StyleTable))

	leaks := report.WarningsOf(anonymize.WarnStyleLeakage)
	if len(leaks) == 0 {
		fmt.Println(okStyle.Render("No style leakage detected"))
		return nil
	}
	fmt.Println(warnStyle.Render(fmt.Sprintf("%d style leakage warning(s):", len(leaks))))
	for _, w := range leaks {
		fmt.Println("  - " + w.Message)
	}
	return nil
}
