package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/jukebox/internal/providers"
	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// QuotaStatus prints per-key quota estimates from the running server.
func (r *Runner) QuotaStatus(ctx context.Context, cmd *cli.Command) error {
	data, err := r.apiGet(ctx, cmd, "/api/quota")
	if err != nil {
		return err
	}
	return r.writeRaw(data, cmd.Bool("pretty"))
}

// QuotaValidate checks a key's format and probes it against the API.
func (r *Runner) QuotaValidate(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: an API key argument is required", shared.ErrMissingKey)
	}

	tracker := quota.NewTracker()
	rotator := quota.NewRotator([]string{key}, tracker, false, r.logger)
	provider := providers.NewYouTubeProvider(r.config.Providers.YouTubeBaseURL, rotator, tracker, nil, r.logger)

	if err := provider.ValidateKey(ctx, key); err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidKeyFormat):
			r.writePlain("key %s is malformed: expected the AIza prefix and 39 characters\n", shared.KeySuffix(key))
		case errors.Is(err, shared.ErrQuotaExceeded):
			r.writePlain("key %s is valid but over quota today\n", shared.KeySuffix(key))
		default:
			r.writePlain("key %s failed validation: %v\n", shared.KeySuffix(key), err)
		}
		return err
	}

	r.writePlain("key %s is valid\n", shared.KeySuffix(key))
	return nil
}
