package domain

import "time"

// VideoReference identifies a single video discovered on a channel.
// It is immutable once discovered; collection never mutates it.
type VideoReference struct {
	// ID is the opaque video identifier used by the remote service
	// (for YouTube, the 11-character watch id).
	ID string `json:"video_id" yaml:"video_id"`

	// Channel is the source channel name, when known.
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`

	// Title is the video title, when known at discovery time.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// PublishedAt may be unknown at collection time.
	PublishedAt *time.Time `json:"published_at" yaml:"published_at,omitempty"`
}
