package types

// PushEnvironment selects the push gateway host.
type PushEnvironment string

const (
	PushEnvironmentSandbox    PushEnvironment = "sandbox"
	PushEnvironmentProduction PushEnvironment = "production"
)

// Defaults applied to every alert unless the caller overrides them.
const (
	DefaultSound = "default"
	DefaultBadge = 1
)

// PushCredential is the provider credential bundle loaded once at startup.
type PushCredential struct {
	KeyID       string
	TeamID      string
	SigningKey  string // PEM text of a PKCS#8 EC private key
	BundleID    string
	Environment PushEnvironment
}

// MissingFields lists the required credential fields that are empty, by
// their environment variable name.
func (c PushCredential) MissingFields() []string {
	var missing []string
	if c.KeyID == "" {
		missing = append(missing, "APNS_KEY_ID")
	}
	if c.TeamID == "" {
		missing = append(missing, "APNS_TEAM_ID")
	}
	if c.SigningKey == "" {
		missing = append(missing, "APNS_KEY")
	}
	return missing
}

// IsComplete reports whether every field needed to sign a provider token is set.
func (c PushCredential) IsComplete() bool {
	return len(c.MissingFields()) == 0
}

// NotificationPayload is one alert addressed to one device.
type NotificationPayload struct {
	DeviceToken string
	Title       string
	Body        string
	Sound       string // empty means DefaultSound
	Badge       *int   // nil means DefaultBadge
	CustomData  Data
}

// SoundOrDefault returns the sound to deliver.
func (p NotificationPayload) SoundOrDefault() string {
	if p.Sound == "" {
		return DefaultSound
	}
	return p.Sound
}

// BadgeOrDefault returns the badge count to deliver.
func (p NotificationPayload) BadgeOrDefault() int {
	if p.Badge == nil {
		return DefaultBadge
	}
	return *p.Badge
}

// SendNotificationRequest is the body of a direct single-device send.
type SendNotificationRequest struct {
	DeviceToken string `json:"device_token" binding:"required"`
	Platform    string `json:"platform" binding:"omitempty,oneof=ios android"`
	Title       string `json:"title" binding:"required"`
	Body        string `json:"body"`
	Sound       string `json:"sound,omitempty"`
	Badge       *int   `json:"badge,omitempty"`
	Data        Data   `json:"data,omitempty"`
}

// SendNotificationResponse reports the outcome of a direct send.
type SendNotificationResponse struct {
	Status string `json:"status"`
	APNsID string `json:"apns_id,omitempty"`
}
