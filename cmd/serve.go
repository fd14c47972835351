package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/server"
	"github.com/desertthunder/jukebox/internal/tasks"
	"github.com/desertthunder/jukebox/internal/web"
	"github.com/urfave/cli/v3"
)

const persistInterval = time.Minute

// Serve runs the full jukebox: kiosk HTTP API, websocket player bridge,
// queue engine, and the persistence loop.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridge := server.NewPlayerBridge(r.logger)
	s, err := r.buildStack(bridge, true)
	if err != nil {
		return err
	}
	defer s.close()
	defer bridge.Close()

	s.session.SetPlaySink(func(entry models.PlayLogEntry) {
		if err := s.history.Append(entry); err != nil {
			r.logger.Warn("failed to persist play", "video", entry.VideoID, "error", err)
		}
	})

	playlistID := cmd.String("playlist")
	if playlistID == "" {
		playlistID = r.config.Playback.PlaylistID
	}
	if playlistID != "" {
		items, err := s.loader.Load(ctx, playlistID)
		if err != nil {
			r.logger.Error("failed to load default playlist", "playlist", playlistID, "error", err)
		} else {
			s.engine.SetPlaylist(items)
		}
	} else {
		r.logger.Warn("no default playlist configured, queue starts empty")
	}

	s.channel.Start(ctx)

	maintenance := tasks.NewMaintenanceEngine(tasks.MaintenanceDeps{
		Keys:          r.config.Credentials.APIKeys,
		PlaylistID:    playlistID,
		Quotas:        s.tracker,
		Rotations:     s.rotator,
		Health:        s.loader,
		KeyStore:      s.keyStates,
		RotationStore: s.rotations,
		HealthStore:   s.health,
		Interval:      persistInterval,
		Logger:        r.logger,
	})
	go maintenance.Run(ctx, nil)

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(server.NewJukeboxHandler(
		s.engine, s.session, s.channel, s.loader,
		s.tracker, s.rotator, r.config.Credentials.APIKeys, s.history, r.logger,
	))
	router.Handler(bridge)
	router.Handler(web.NewPlayerPage(r.logger))

	srv := server.NewServer(r.config.Server.Host, r.config.Server.Port, router, r.logger)
	return srv.Run(ctx)
}
