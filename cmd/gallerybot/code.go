package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	appbot "github.com/m3rciful/gallerybot/app/bot"
	"github.com/m3rciful/gallerybot/app/codes"
	appconfig "github.com/m3rciful/gallerybot/app/config"
	"github.com/m3rciful/gallerybot/core/bootstrap"
	corecmd "github.com/m3rciful/gallerybot/core/cmd"
	coreconfig "github.com/m3rciful/gallerybot/core/config"
)

func newCodeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Inspect and revoke deletion codes",
	}
	cmd.AddCommand(newCodeResolveCmd(root), newCodeRevokeCmd(root))
	return cmd
}

func newCodeResolveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve CODE",
		Short: "Print the channel message id a deletion code points to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codes.ParseCode(args[0])
			if err != nil {
				return err
			}
			return withRegistry(root, func(reg *codes.Registry) error {
				id, err := reg.Resolve(cmd.Context(), code)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "message_id: %d\n", id)
				return err
			})
		},
	}
}

func newCodeRevokeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke CODE",
		Short: "Forget a deletion code without touching the channel message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codes.ParseCode(args[0])
			if err != nil {
				return err
			}
			return withRegistry(root, func(reg *codes.Registry) error {
				if _, err := reg.Resolve(cmd.Context(), code); err != nil {
					return err
				}
				if err := reg.Revoke(cmd.Context(), code); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "revoked: %s\n", code)
				return err
			})
		},
	}
}

// withRegistry opens the configured store without the bot logger so command output stays clean.
func withRegistry(root *rootOptions, fn func(*codes.Registry) error) (err error) {
	path, err := corecmd.ResolveConfigPath(runnerOptions(root))
	if err != nil {
		return err
	}
	cfg, err := appconfig.Load(path)
	if err != nil {
		return err
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg.CoreConfig(),
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	if err != nil {
		return err
	}
	defer closeQuietly(infra, &err)

	store, err := appbot.OpenStore(cfg.CoreConfig(), infra)
	if err != nil {
		return err
	}
	return fn(codes.NewRegistry(store))
}

func closeQuietly(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil {
		*errp = errors.Join(*errp, cerr)
	}
}
