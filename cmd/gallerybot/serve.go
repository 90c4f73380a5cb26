package main

import (
	"github.com/spf13/cobra"

	appbot "github.com/m3rciful/gallerybot/app/bot"
	appconfig "github.com/m3rciful/gallerybot/app/config"
	corecmd "github.com/m3rciful/gallerybot/core/cmd"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(cmd.Context(), runnerOptions(root))
		},
	}
}

func runnerOptions(root *rootOptions) corecmd.Options {
	return corecmd.Options{
		ConfigPath:        root.configPath,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return appconfig.Load(path)
		},
		Bootstrap: appbot.Bootstrap,
	}
}
