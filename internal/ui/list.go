package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

var (
	_ list.Item = requestItem{}
	_ list.Item = upcomingItem{}
)

// requestItem wraps [models.Request] to implement [list.Item].
type requestItem struct {
	request models.Request
}

func (i requestItem) FilterValue() string { return i.request.Item.Title }
func (i requestItem) Title() string       { return shared.CleanTitle(i.request.Item.Title) }
func (i requestItem) Description() string {
	desc := i.request.Item.ChannelTitle
	if i.request.RequestedBy != "" {
		desc = fmt.Sprintf("%s • requested by %s", desc, i.request.RequestedBy)
	}
	return desc
}

// upcomingItem wraps [models.QueueItem] to implement [list.Item].
type upcomingItem struct {
	item models.QueueItem
}

func (i upcomingItem) FilterValue() string { return i.item.Title }
func (i upcomingItem) Title() string       { return shared.CleanTitle(i.item.Title) }
func (i upcomingItem) Description() string {
	if i.item.ChannelTitle == "" {
		return i.item.VideoID
	}
	return i.item.ChannelTitle
}
