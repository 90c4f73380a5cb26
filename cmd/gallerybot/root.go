package main

import (
	"github.com/spf13/cobra"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "gallerybot",
		Short:         "Telegram bot that publishes member photos to a gallery channel",
		Long:          "gallerybot relays photo submissions from members of a private group to a public channel and lets submitters remove them with a deletion code.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to the YAML config (defaults to $"+configEnvVar+", then "+defaultConfigPath+")")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newCodeCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}
