package apns

import (
	"encoding/json"

	"github.com/TreeBites/treebites-push/types"
)

// apsKey is reserved for the alert dictionary; custom data cannot override it.
const apsKey = "aps"

type alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type aps struct {
	Alert alert  `json:"alert"`
	Sound string `json:"sound"`
	Badge int    `json:"badge"`
}

// EncodePayload renders the gateway request body:
// {"aps":{"alert":{"title","body"},"sound","badge"}, ...customData}.
func EncodePayload(p types.NotificationPayload) ([]byte, error) {
	doc := make(map[string]interface{}, len(p.CustomData)+1)
	for key, value := range p.CustomData {
		if key == apsKey {
			continue
		}
		doc[key] = value
	}
	doc[apsKey] = aps{
		Alert: alert{Title: p.Title, Body: p.Body},
		Sound: p.SoundOrDefault(),
		Badge: p.BadgeOrDefault(),
	}
	return json.Marshal(doc)
}
