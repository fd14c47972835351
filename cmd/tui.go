package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI runs the operator terminal UI over an in-process stack. Playback
// commands go to a loopback transport; this mode is for queue curation, not
// actual playback.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	transport := playback.NewLoopbackTransport()
	s, err := r.buildStack(transport, false)
	if err != nil {
		return err
	}
	defer transport.Close()

	playlistID := cmd.String("playlist")
	if playlistID == "" {
		playlistID = r.config.Playback.PlaylistID
	}
	if playlistID != "" {
		items, err := s.loader.Load(ctx, playlistID)
		if err != nil {
			return fmt.Errorf("failed to load playlist: %w", err)
		}
		s.engine.SetPlaylist(items)
	}

	s.channel.Start(ctx)
	s.engine.Advance(ctx)

	return ui.Run(ctx, s.engine, s.session, s.channel)
}
