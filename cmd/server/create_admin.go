package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yalmoalm/JaMoveo/internal/config"
	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

func newCreateAdminCmd(cfg func() *config.Config) *cobra.Command {
	var username, password, instrument string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := cfg()
			sqlDB, err := openStore(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			users := services.NewUserService(db.New(sqlDB), services.NewAuthService(c.JWTSecret, c.TokenDuration))
			user, err := users.CreateAdmin(cmd.Context(), services.SignupParams{
				Username:   username,
				Password:   password,
				Instrument: instrument,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&instrument, "instrument", "vocals", "admin instrument")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
