package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seqra/migtest/internal/semver"
)

var compareCmd = &cobra.Command{
	Use:   "compare <a> <b>",
	Short: "Compare two version tokens",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ordering, err := semver.CompareStrings(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(ordering)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
