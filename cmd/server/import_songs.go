package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yalmoalm/JaMoveo/internal/config"
	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/services"
	"github.com/yalmoalm/JaMoveo/internal/songsync"
)

func newImportSongsCmd(cfg func() *config.Config) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "import-songs <dir>",
		Short: "Import song JSON files from a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := openStore(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			importer := songsync.NewImporter(services.NewSongService(sqlDB, db.New(sqlDB)), slog.Default())
			if watch {
				return importer.Watch(cmd.Context(), args[0])
			}

			n, err := importer.ImportDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d songs\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep importing new files until interrupted")

	return cmd
}
