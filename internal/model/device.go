package model

import "time"

// Device is a wall-mounted weather display registered by a user. OwnerID is
// the input to ownership checks: a device is only visible to its owner and
// to admins.
type Device struct {
	ID              int64      `json:"id" db:"id"`
	DeviceID        string     `json:"device_id" db:"device_id"`
	OwnerID         int64      `json:"owner_id" db:"owner_id"`
	Name            string     `json:"name" db:"name"`
	Address         string     `json:"address" db:"address"`
	Lat             float64    `json:"lat" db:"lat"`
	Lon             float64    `json:"lon" db:"lon"`
	Timezone        string     `json:"timezone" db:"timezone"`
	DisplaySettings *string    `json:"display_settings,omitempty" db:"display_settings"` // opaque JSON blob
	LastSeen        *time.Time `json:"last_seen,omitempty" db:"last_seen"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
