// Package notification renders backend events into notification content.
package notification

import (
	"fmt"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/types"
)

const (
	TitleNewPost     = "Free food near you!"
	TitleLowQuantity = "Almost gone!"
)

// Content is the device-independent part of a notification.
type Content struct {
	Title string
	Body  string
	Data  types.Data
}

// Payload addresses the content to one device.
func (c Content) Payload(deviceToken string) types.NotificationPayload {
	return types.NotificationPayload{
		DeviceToken: deviceToken,
		Title:       c.Title,
		Body:        c.Body,
		CustomData:  c.Data,
	}
}

// BuildPayload renders the notification content for event.
func BuildPayload(event types.PushEvent) (Content, error) {
	switch event.Type {
	case types.EventNewPost:
		if event.PostID == "" || event.PostTitle == "" {
			return Content{}, apperrors.ValidationFailed("invalid event", "new_post requires post_id and post_title")
		}
		return Content{
			Title: TitleNewPost,
			Body:  event.PostTitle,
			Data:  postData(event),
		}, nil
	case types.EventLowQuantity:
		if event.PostID == "" || event.PostTitle == "" {
			return Content{}, apperrors.ValidationFailed("invalid event", "low_quantity requires post_id and post_title")
		}
		return Content{
			Title: TitleLowQuantity,
			Body:  fmt.Sprintf("%s is running low", event.PostTitle),
			Data:  postData(event),
		}, nil
	case types.EventCustom:
		if event.Title == "" {
			return Content{}, apperrors.ValidationFailed("invalid event", "custom requires a title")
		}
		return Content{Title: event.Title, Body: event.Body, Data: event.Data}, nil
	default:
		return Content{}, apperrors.ValidationFailed("invalid event", fmt.Sprintf("unknown event type %q", event.Type))
	}
}

// postData merges caller data under the post reference keys.
func postData(event types.PushEvent) types.Data {
	data := make(types.Data, len(event.Data)+2)
	for k, v := range event.Data {
		data[k] = v
	}
	data["post_id"] = types.String(event.PostID)
	data["type"] = types.String(event.Type)
	return data
}
