package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/microfeed/microfeed/internal/domain"
	"github.com/microfeed/microfeed/internal/feed"
)

// Event types delivered by the push channel. Each carries the affected
// record's new (inserted/updated) or old (deleted) full row image.
const (
	EventTypeRecordInserted = "record.inserted"
	EventTypeRecordUpdated  = "record.updated"
	EventTypeRecordDeleted  = "record.deleted"
	EventTypePing           = "ping"
	EventTypePong           = "pong"
)

// Watched collections.
const (
	CollectionPosts    = "posts"
	CollectionProfiles = "profiles"
)

// Event is the envelope for all channel messages.
type Event struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  int64           `json:"ts,omitempty"`
}

// IsChange reports whether the event is a collection change notification.
func (e Event) IsChange() bool {
	switch e.Type {
	case EventTypeRecordInserted, EventTypeRecordUpdated, EventTypeRecordDeleted:
		return true
	}
	return false
}

// PostChange decodes a posts-collection event into a reconciler change.
func (e Event) PostChange() (feed.Change, error) {
	var p domain.Post
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return feed.Change{}, fmt.Errorf("decoding post payload: %w", err)
	}
	switch e.Type {
	case EventTypeRecordInserted:
		return feed.Change{Op: feed.OpInsert, Post: p}, nil
	case EventTypeRecordUpdated:
		return feed.Change{Op: feed.OpUpdate, Post: p}, nil
	case EventTypeRecordDeleted:
		return feed.Change{Op: feed.OpDelete, Post: p}, nil
	}
	return feed.Change{}, fmt.Errorf("not a change event: %s", e.Type)
}

// ProfileRecord decodes a profiles-collection event payload.
func (e Event) ProfileRecord() (domain.Profile, error) {
	var p domain.Profile
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return domain.Profile{}, fmt.Errorf("decoding profile payload: %w", err)
	}
	return p, nil
}
