package model

import "time"

type PostStatus string

const (
	StatusIdea      PostStatus = "Idea"
	StatusDraft     PostStatus = "Draft"
	StatusInReview  PostStatus = "In Review"
	StatusScheduled PostStatus = "Scheduled"
	StatusPublished PostStatus = "Published"
)

var PostStatuses = []PostStatus{StatusIdea, StatusDraft, StatusInReview, StatusScheduled, StatusPublished}

func (s PostStatus) Valid() bool {
	for _, status := range PostStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	AuthorName string     `json:"authorName,omitempty"`
	Status     PostStatus `json:"status"`
	Date       *time.Time `json:"date"`
	Views      int        `json:"views"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// OwnerID makes Post an owned resource.
func (p Post) OwnerID() string {
	return p.Author
}

type PostFilter struct {
	AuthorID string
	Status   PostStatus
	Limit    int
	// ByViews orders by views descending instead of by date.
	ByViews bool
}

type TopPost struct {
	Title string `json:"title"`
	Views int    `json:"views"`
}

// PostAnalytics feeds the dashboard charts. PageViews is synthetic.
type PostAnalytics struct {
	TopPosts  []TopPost `json:"topPosts"`
	PageViews []int     `json:"pageViews"`
}
