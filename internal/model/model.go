package model

import "time"

type User struct {
	UserID       string    `json:"userid"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Post struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	ImagePath  string    `json:"imagePath,omitempty"`
}

// PostEdit carries the only fields of a Post that may change after creation.
type PostEdit struct {
	Title     string
	Content   string
	CreatedAt time.Time
	ImagePath string
}

type Comment struct {
	PostID     int64     `json:"postId"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
}

// Like is the ledger entry paired with a post. Total always equals len(Members).
type Like struct {
	PostID  int64    `json:"postId"`
	Total   int      `json:"likeTotal"`
	Members []string `json:"likeMembers"`
}

func (l Like) Has(userID string) bool {
	for _, m := range l.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type LikeResult struct {
	PostID int64 `json:"postId"`
	Total  int   `json:"likeTotal"`
	Liked  bool  `json:"liked"`
}
