package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/minnesingerthule/VRIL-Storage/internal/config"
	"github.com/minnesingerthule/VRIL-Storage/internal/logging"
	"github.com/minnesingerthule/VRIL-Storage/internal/server"
	"github.com/minnesingerthule/VRIL-Storage/internal/storage"
	"github.com/minnesingerthule/VRIL-Storage/internal/store"
	"github.com/spf13/cobra"
)

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the VRIL storage server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			log := logging.New("vril", cfg.Log)

			ctx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Database.Path})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect database: %w", err)
			}
			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			blobs, err := storage.NewLocalStorage(cfg.Storage.Dir)
			if err != nil {
				return err
			}

			srv, err := server.New(cfg, db.DB(), blobs, log)
			if err != nil {
				return err
			}

			return srv.Run(ctx)
		},
	}
}
