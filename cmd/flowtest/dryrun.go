package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcuspmd/flow-test-sub005/internal/cliutil"
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Print the resolved dependency order without executing any requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine()
		if err != nil {
			return err
		}
		defer e.log.Sync()

		order, err := e.graph.Order()
		if err != nil {
			return err
		}

		fmt.Println(cliutil.HeaderStyle.Render("Execution plan"))
		for i, nodeID := range order {
			suite, ok := e.registry.Suite(nodeID)
			name := nodeID
			if ok {
				name = suite.Name
			}
			fmt.Printf("%2d. %s (%s)\n", i+1, name, nodeID)
			if ok {
				for _, step := range suite.Steps {
					fmt.Printf("      - %s\n", step.Name)
				}
			}
		}
		return nil
	},
}
