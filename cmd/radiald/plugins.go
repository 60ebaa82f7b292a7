package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"RadialCore/internal/core"
	"RadialCore/internal/plugins/basicactions"
)

func newPluginsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "加载插件并列出清单与提供者数量",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			host := core.New(cfg, core.WithBuiltins(basicactions.New()))
			if err := host.Initialize(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = host.Shutdown() }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tSTATE\tSOURCE\tPROVIDERS")
			for _, info := range host.Loader().Plugins() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", info.ID, info.Version, info.State, info.Source, formatProviders(info.Providers))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n核心版本 %s，共 %d 个插件\n", host.Loader().CoreVersion(), host.Loader().Count())
			return nil
		},
	}
}

func formatProviders(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, counts[kind]))
	}
	return strings.Join(parts, ",")
}
