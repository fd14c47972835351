package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jukebox/internal/repositories"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints the persisted play history straight from the store.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database (run setup first?): %w", err)
	}
	defer db.Close()

	repo := repositories.NewPlayHistoryRepository(db)
	entries, err := repo.Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return r.writePlain("no plays recorded yet\n")
	}
	return r.writeJSON(entries, cmd.Bool("pretty"))
}
