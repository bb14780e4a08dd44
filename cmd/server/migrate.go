package main

import (
	"github.com/spf13/cobra"

	"github.com/yalmoalm/JaMoveo/internal/config"
)

func newMigrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlDB, err := openStore(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
