package models

import "time"

// PositionSample is a single recorded driver location for a delivery.
// Samples are immutable once persisted; the tracking store owns them.
type PositionSample struct {
	ID         int64     `json:"id,omitempty"`
	DeliveryID string    `json:"deliveryId"`
	DriverID   string    `json:"driverId"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	RecordedAt time.Time `json:"timestamp"`
}

// LocationUpdate is the raw payload of an inbound locationUpdate event.
// Latitude and longitude are pointers so a missing field fails validation
// instead of silently becoming coordinate (0, 0).
type LocationUpdate struct {
	DeliveryID string     `json:"deliveryId" validate:"required"`
	DriverID   string     `json:"driverId" validate:"required"`
	Latitude   *float64   `json:"lat" validate:"required"`
	Longitude  *float64   `json:"lng" validate:"required"`
	Speed      *float64   `json:"speed"`
	Heading    *float64   `json:"heading"`
	Timestamp  *time.Time `json:"timestamp"`
}

// TrackingUpdate is pushed to members of a delivery room.
type TrackingUpdate struct {
	DeliveryID string    `json:"deliveryId"`
	DriverID   string    `json:"driverId"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TrackingUpdateAdmin is the reduced payload pushed to the admin aggregate
// room: the ops map does not need speed or heading.
type TrackingUpdateAdmin struct {
	DeliveryID string    `json:"deliveryId"`
	DriverID   string    `json:"driverId"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Timestamp  time.Time `json:"timestamp"`
}
