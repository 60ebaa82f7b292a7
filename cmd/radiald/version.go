package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"RadialCore/internal/loader"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "输出版本信息",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "radiald %s (commit: %s, built: %s)\ncore %s\n", version, commit, date, loader.CoreVersion)
		},
	}
}
