package profile

import "time"

// Profile is a user's public profile. IdeaIDs lists the ideas the user
// authored and is derived by the store on every read.
type Profile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Bio       *string   `json:"bio"`
	IdeaIDs   []int64   `json:"idea_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries the client-supplied fields of a profile.
type Input struct {
	Username string  `json:"username"`
	Bio      *string `json:"bio"`
}
