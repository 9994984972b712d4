package idea

import "time"

// Idea is a leisure activity suggested by a user.
type Idea struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries the client-supplied fields of an idea.
type Input struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// HasTags reports whether the idea carries every tag in want.
func (i Idea) HasTags(want []string) bool {
	for _, tag := range want {
		found := false
		for _, have := range i.Tags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
