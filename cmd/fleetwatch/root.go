package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fleetwatch/internal/config"
	"fleetwatch/internal/version"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "fleetwatch",
		Short:         "Agent fleet monitor",
		Long:          "fleetwatch polls an OpenClaw gateway, derives usage, cost and alerts,\nand serves them together with a live event feed.",
		Version:       fmt.Sprintf("fleetwatch %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	cmd.AddCommand(
		newServeCmd(load),
		newCheckCmd(load),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fleetwatch %s\n", version.String())
		},
	}
}
