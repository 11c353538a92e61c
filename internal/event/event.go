package event

type Type string

const (
	TypePostCreated    Type = "post.created"
	TypePostUpdated    Type = "post.updated"
	TypePostDeleted    Type = "post.deleted"
	TypeEventCreated   Type = "calendar.created"
	TypeEventUpdated   Type = "calendar.updated"
	TypeEventDeleted   Type = "calendar.deleted"
	TypeUserRegistered Type = "user.registered"
	TypeUserLoggedIn   Type = "user.logged_in"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Resource  string `json:"resource,omitempty"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actorId,omitempty"` // Who triggered the event
	// Audience restricts delivery to one user. Empty means everyone.
	Audience string `json:"-"`
}

// VisibleTo reports whether a subscriber acting as userID may see e.
func (e Event) VisibleTo(userID string) bool {
	return e.Audience == "" || e.Audience == userID
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
	// SubscribeLossless never drops: Publish waits for buffer space until the
	// subscriber unsubscribes.
	SubscribeLossless() (<-chan Event, func())
}
