package types

import "time"

// Platform identifies the push provider family of a device.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// DeviceRegistration associates a device token with the user that was signed in
// when the platform delivered it.
type DeviceRegistration struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Platform  Platform  `json:"platform"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// RegisterDeviceTokenRequest is the request body for registering a device token
type RegisterDeviceTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=ios android"`
}
