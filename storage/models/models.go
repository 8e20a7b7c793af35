package models

import "time"

type Post struct {
	Id           string    `json:"id"`
	AuthorEmail  string    `json:"author_email"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	CreationDate time.Time `json:"creation_date"`
	ChangeDate   time.Time `json:"change_date"`
}

// Comment is also the shape returned by GET /posts/{id}/comments, so
// CreationDate keeps the native time.Time encoding.
type Comment struct {
	Id           string    `json:"id"`
	AuthorEmail  string    `json:"author_email"`
	Body         string    `json:"body"`
	CreationDate time.Time `json:"creation_date"`
}

// PublicPost is the stable external representation of a Post.
type PublicPost struct {
	Id          string `json:"id"`
	AuthorEmail string `json:"author_email"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
