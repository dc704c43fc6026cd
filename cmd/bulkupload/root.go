package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dukerupert/binbill/internal"
	"github.com/dukerupert/binbill/internal/catalog"
	"github.com/dukerupert/binbill/internal/platform"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string

	cfg    *internal.Config
	logger zerolog.Logger
	ref    *catalog.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "bulkupload",
		Short:        "Validate and enroll customer spreadsheets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (YAML, TOML or JSON); environment variables override it")

	cmd.AddCommand(
		newValidateCmd(a),
		newSubmitCmd(a),
		newTemplateCmd(),
		newCollectionsCmd(a),
		newStatesCmd(a),
	)

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := internal.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = internal.NewLogger(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)

	a.ref = catalog.Default()
	if cfg.CatalogPath != "" {
		if a.ref, err = catalog.LoadFile(cfg.CatalogPath); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) platform() *platform.Client {
	return platform.NewClient(platform.Config{
		BaseURL: a.cfg.Platform.BaseURL,
		Token:   a.cfg.Platform.Token,
		PSPID:   a.cfg.Platform.PSPID,
		Timeout: a.cfg.Platform.Timeout,
	}, a.logger)
}
