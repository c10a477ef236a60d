package model

import (
	"time"

	"github.com/google/uuid"
)

// Post is an entry of the feed. MediaURL holds the stored name of the
// primary image variant, MediaThumbnail its thumbnail.
type Post struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Content        string    `json:"content"`
	MediaURL       string    `json:"media_url,omitempty"`
	MediaThumbnail string    `json:"media_thumbnail,omitempty"`
	Category       string    `json:"category,omitempty"`
	Tags           []string  `json:"tags"`
	Visibility     string    `json:"visibility"`
	LikesCount     int       `json:"likes_count"`
	ViewsCount     int       `json:"views_count"`
	CreatedAt      time.Time `json:"created_at"`
}
