package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seqra/migtest/internal/gate"
	"github.com/seqra/migtest/internal/semver"
)

var gatesCmd = &cobra.Command{
	Use:   "gates [version]",
	Short: "List capability thresholds, or evaluate them for one version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := gate.Default()

		if len(args) == 1 {
			v, err := semver.Parse(args[0])
			if err != nil {
				return err
			}
			for _, c := range g.Capabilities() {
				fmt.Printf("%-30s %v\n", c, g.Supports(c, v))
			}
			return nil
		}

		for _, c := range g.Capabilities() {
			t, _ := g.Threshold(c)
			line := fmt.Sprintf("%-30s >= %s", c, t.Min)
			if t.BrokenBefore != nil {
				line += fmt.Sprintf(" (broken before %s)", *t.BrokenBefore)
			}
			if t.RemovedInCurrent {
				line += " (removed in current)"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gatesCmd)
}
