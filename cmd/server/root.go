package main

import (
	"github.com/dkeye/webcat/internal/adapters/userdb"
	"github.com/dkeye/webcat/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "webcat",
		Short:        "Activity orchestration server for humans and robots",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file (default config/config.$CONFIG_ENV.yaml)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newUserCmd(opts),
		newFriendsCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) load() (*config.Config, error) {
	if o.configFile != "" {
		return config.LoadFile(o.configFile)
	}
	return config.Load()
}

func (o *rootOptions) openStore() (*userdb.Store, *config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	store, err := userdb.Open(userdb.Options{Path: cfg.DBPath, Cost: cfg.BcryptCost})
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
