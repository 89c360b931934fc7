package types

// EventType names a backend event that triggers a push notification.
type EventType string

const (
	EventNewPost     EventType = "new_post"
	EventLowQuantity EventType = "low_quantity"
	EventCustom      EventType = "custom"
)

// PushEvent is a backend event to fan out to the devices of a set of users.
type PushEvent struct {
	Type      EventType `json:"type" binding:"required,oneof=new_post low_quantity custom"`
	UserIDs   []string  `json:"user_ids" binding:"required,min=1"`
	PostID    string    `json:"post_id,omitempty"`
	PostTitle string    `json:"post_title,omitempty"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
	Data      Data      `json:"data,omitempty"`
}

// FanoutResult summarises how many sends a fan-out scheduled.
type FanoutResult struct {
	Recipients int `json:"recipients"`
	Queued     int `json:"queued"`
	Dropped    int `json:"dropped"`
}
