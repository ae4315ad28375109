package main

import (
	"fmt"
	"os"

	"cvranon/internal/ledger"

	"github.com/spf13/cobra"
)

var runsLimit int

// runsCmd lists recorded runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List anonymization runs recorded in the ledger",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func listRuns(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	if _, err := os.Stat(c.Ledger.Path); os.IsNotExist(err) {
		fmt.Println("No runs recorded (ledger not found at " + c.Ledger.Path + ")")
		return nil
	}

	l, err := ledger.Open(c.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	runs, err := l.List(commandContext(cmd), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	fmt.Println(renderRuns(runs))
	return nil
}
