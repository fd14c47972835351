// Package web serves the browser player window.
//
// The player page embeds the YouTube IFrame player, connects back over the
// /ws/player websocket, executes playback commands, and reports status
// transitions. It is the kiosk's only web surface; queue control stays on the
// HTTP API and the TUI.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/jukebox/internal/shared"
)

//go:embed player.html
var playerFS embed.FS

// PlayerPage renders the player window.
type PlayerPage struct {
	tmpl   *template.Template
	logger *log.Logger
}

// NewPlayerPage parses the embedded player template.
func NewPlayerPage(logger *log.Logger) *PlayerPage {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlayerPage{
		tmpl:   template.Must(template.ParseFS(playerFS, "player.html")),
		logger: logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (p *PlayerPage) Routes() []string {
	return []string{"GET /player"}
}

// ServeHTTP renders the player page.
func (p *PlayerPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.tmpl.Execute(w, map[string]string{"WSPath": "/ws/player"}); err != nil {
		p.logger.Error("failed to render player page", "error", err)
	}
}
