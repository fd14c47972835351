package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jukebox/internal/repositories"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/desertthunder/jukebox/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes play history to CSV with a summary JSON file. Reads the
// store directly, so it works whether or not the server is running.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database (run setup first?): %w", err)
	}
	defer db.Close()

	archiver := tasks.NewArchiver(repositories.NewPlayHistoryRepository(db), nil, r.logger)
	result, err := archiver.Run(ctx, nil, cmd.String("out"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	r.writePlain("exported %d plays\n", result.PlayCount)
	for _, file := range result.Files {
		r.writePlain("  %s\n", file)
	}
	return nil
}
