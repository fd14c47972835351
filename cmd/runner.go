package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/loader"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/providers"
	"github.com/desertthunder/jukebox/internal/queue"
	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/repositories"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, loadCommand, queueCommand, searchCommand, quotaCommand, historyCommand, exportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stack is the assembled jukebox: providers, queue, playback, persistence.
type stack struct {
	db        *sql.DB
	tracker   *quota.Tracker
	rotator   *quota.Rotator
	loader    *loader.Loader
	session   *queue.Session
	engine    *queue.Engine
	channel   *playback.Channel
	keyStates *repositories.KeyStateRepository
	health    *repositories.PlaylistHealthRepository
	rotations *repositories.RotationEventRepository
	history   *repositories.PlayHistoryRepository
}

func (s *stack) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// buildStack assembles the jukebox over the given transport. withDB opens
// the sqlite store and seeds in-memory state from it.
func (r *Runner) buildStack(transport playback.Transport, withDB bool) (*stack, error) {
	cfg := r.config
	tracker := quota.NewTracker()
	rotator := quota.NewRotator(cfg.Credentials.APIKeys, tracker, cfg.Credentials.AutoRotate, r.logger)
	breaker := providers.NewBreaker(cfg.Providers.CallsPerMinute)

	var primary providers.Provider
	if len(cfg.Credentials.APIKeys) > 0 {
		primary = providers.NewYouTubeProvider(cfg.Providers.YouTubeBaseURL, rotator, tracker, breaker, r.logger)
	}
	fallback := providers.NewProxyProvider(cfg.Providers.ProxyURL, r.logger)

	ldr := loader.NewLoader(primary, fallback, rotator, r.logger,
		loader.WithPaging(cfg.Providers.PageSize, cfg.Providers.PageCap),
		loader.WithCooldown(cfg.Providers.FailureThreshold, time.Duration(cfg.Providers.CooldownMinutes)*time.Minute),
	)

	session := queue.NewSession(queue.Mode(cfg.Playback.Mode), r.logger)
	engine := queue.NewEngine(session, r.logger)
	channel := playback.NewChannel(transport, engine, session.Audit, r.logger)
	engine.BindSink(channel)

	s := &stack{
		tracker: tracker,
		rotator: rotator,
		loader:  ldr,
		session: session,
		engine:  engine,
		channel: channel,
	}
	if !withDB {
		return s, nil
	}

	db, err := shared.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = db
	s.keyStates = repositories.NewKeyStateRepository(db)
	s.health = repositories.NewPlaylistHealthRepository(db)
	s.rotations = repositories.NewRotationEventRepository(db)
	s.history = repositories.NewPlayHistoryRepository(db)

	r.seedFromStore(s)
	return s, nil
}

// seedFromStore restores persisted quota and playlist health into the
// in-memory trackers.
func (r *Runner) seedFromStore(s *stack) {
	states, err := s.keyStates.All()
	if err != nil {
		r.logger.Warn("failed to load persisted key state", "error", err)
		return
	}

	bySuffix := make(map[string]string, len(r.config.Credentials.APIKeys))
	for _, key := range r.config.Credentials.APIKeys {
		bySuffix[shared.KeySuffix(key)] = key
	}

	for _, state := range states {
		key, ok := bySuffix[state.Quota.KeySuffix]
		if !ok {
			continue
		}
		s.tracker.Seed(key, state.Quota.Used, state.Quota.LastUpdated)
		if !state.ExhaustedAt.IsZero() && time.Since(state.ExhaustedAt) < 24*time.Hour {
			s.tracker.MarkExhausted(key)
		}
	}

	if playlistID := r.config.Playback.PlaylistID; playlistID != "" {
		if health, err := s.health.Get(playlistID); err == nil && health != nil {
			s.loader.Seed(playlistID, health.Failures, health.LastFailureAt)
		}
	}
}

// serverBase returns the base URL of the kiosk API for client commands.
func (r *Runner) serverBase(cmd *cli.Command) string {
	if base := cmd.String("server"); base != "" {
		return base
	}
	host := r.config.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, r.config.Server.Port)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
