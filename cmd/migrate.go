package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"gitlab.com/yelinaung/finance-concierge/internal/config"
	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the schema and seed reference data",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	url, defaults, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	pool, err := database.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrate(ctx, pool, defaults); err != nil {
		return err
	}
	logger.Log.Info().Int("categories", len(defaults.Categories)).Msg("Database migrated and seeded")
	return nil
}

func migrate(ctx context.Context, db database.PGXDB, defaults *config.Defaults) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	if err := database.SeedCategories(ctx, db, categorySeeds(defaults)); err != nil {
		return err
	}
	return database.SeedCurrencies(ctx, db)
}

func categorySeeds(d *config.Defaults) []database.CategorySeed {
	seeds := make([]database.CategorySeed, 0, len(d.Categories))
	for _, c := range d.Categories {
		seeds = append(seeds, database.CategorySeed{
			Name:        c.Name,
			Description: c.Description,
			Icon:        c.Icon,
			Color:       c.Color,
		})
	}
	return seeds
}
