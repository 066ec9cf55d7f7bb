package entity

import "time"

type Comment struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	Content      string    `json:"content"`
	AuthorID     string    `json:"author_id,omitempty"`
	AuthorEmail  string    `json:"author_email,omitempty"`
	PostedAt     time.Time `json:"posted_at"`
}

func (c *Comment) Author() AuthorIdentity {
	return NewAuthorIdentity(c.AuthorID, c.AuthorEmail)
}
