package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// apiGet issues a GET against the running server and returns the raw body.
func (r *Runner) apiGet(ctx context.Context, cmd *cli.Command, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.serverBase(cmd)+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return r.doAPI(req)
}

// apiPost issues a POST with a JSON body against the running server.
func (r *Runner) apiPost(ctx context.Context, cmd *cli.Command, path string, body any) (json.RawMessage, error) {
	payload, err := shared.MarshalJSON(body, false)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverBase(cmd)+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return r.doAPI(req)
}

func (r *Runner) doAPI(req *http.Request) (json.RawMessage, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("is the jukebox server running? %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server rejected the request: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return data, nil
}

func (r *Runner) writeRaw(data json.RawMessage, pretty bool) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return r.writeJSON(v, pretty)
}

// Load fetches a playlist through the provider chain and prints it.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("playlist")
	if playlistID == "" {
		playlistID = r.config.Playback.PlaylistID
	}
	if playlistID == "" {
		return fmt.Errorf("a playlist ID is required")
	}

	s, err := r.buildStack(playback.NewLoopbackTransport(), false)
	if err != nil {
		return err
	}

	items, err := s.loader.Load(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	return r.writeJSON(items, cmd.Bool("pretty"))
}

// QueueShow prints the queue snapshot from the running server.
func (r *Runner) QueueShow(ctx context.Context, cmd *cli.Command) error {
	data, err := r.apiGet(ctx, cmd, "/api/queue")
	if err != nil {
		return err
	}
	return r.writeRaw(data, cmd.Bool("pretty"))
}

// QueueRequest submits a priority request to the running server.
func (r *Runner) QueueRequest(ctx context.Context, cmd *cli.Command) error {
	videoID := cmd.StringArg("video")
	if videoID == "" {
		return fmt.Errorf("a video ID is required")
	}

	data, err := r.apiPost(ctx, cmd, "/api/requests", map[string]string{
		"videoId":     videoID,
		"title":       cmd.String("title"),
		"requestedBy": cmd.String("by"),
	})
	if err != nil {
		return err
	}

	r.writePlain("request queued: %s\n", videoID)
	return r.writeRaw(data, false)
}

// QueueSkip skips the current track on the running server.
func (r *Runner) QueueSkip(ctx context.Context, cmd *cli.Command) error {
	data, err := r.apiPost(ctx, cmd, "/api/skip", map[string]bool{"confirmed": cmd.Bool("yes")})
	if err != nil {
		return err
	}
	return r.writeRaw(data, false)
}

// QueueShuffle shuffles the default playlist on the running server.
func (r *Runner) QueueShuffle(ctx context.Context, cmd *cli.Command) error {
	data, err := r.apiPost(ctx, cmd, "/api/shuffle", struct{}{})
	if err != nil {
		return err
	}
	return r.writeRaw(data, false)
}

// Search queries the running server's provider chain.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("a search query is required")
	}

	path := "/api/search?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(cmd.Int("limit"))
	data, err := r.apiGet(ctx, cmd, path)
	if err != nil {
		return err
	}
	return r.writeRaw(data, cmd.Bool("pretty"))
}
