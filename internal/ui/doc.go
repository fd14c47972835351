// Package ui implements the operator's terminal view of the jukebox using
// bubbletea's Elm architecture.
//
// The TUI shows now playing, the pending request tier, and the upcoming
// default playlist in one screen:
//  1. [QueueView] : Browse the queue; skip, shuffle, pause, resume
//  2. [ConfirmSkipView] : Confirm skipping a user-requested track
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Queue state is re-snapshotted on a one-second tick, so changes made through the HTTP API show up without interaction.
//
// Keyboard navigation uses vim-style bindings (j/k, s, S, p, o, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
