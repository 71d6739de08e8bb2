package realtime

import (
	"encoding/json"

	"github.com/vainnor/delivery-tracking/models"
)

// Inbound event names.
const (
	EventJoinDeliveryRoom = "joinDeliveryRoom"
	EventJoinAdminRoom    = "joinAdminRoom"
	EventLocationUpdate   = "locationUpdate"
	EventGetLastLocation  = "getLastLocation"
)

// Outbound event names.
const (
	EventTrackingUpdate      = "trackingUpdate"
	EventTrackingUpdateAdmin = "trackingUpdateAdmin"
	EventLastLocation        = "lastLocation"
	EventError               = "error"
)

// Envelope is the tagged frame for every message on the socket. RequestID is
// optional; when a request carries one the response echoes it back so the
// client can correlate request/response pairs.
type Envelope struct {
	Event     string          `json:"event"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type JoinDeliveryRoomData struct {
	DeliveryID string `json:"deliveryId"`
}

type GetLastLocationData struct {
	DeliveryID string `json:"deliveryId"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type LastLocationData struct {
	Found    bool                   `json:"found"`
	Location *models.PositionSample `json:"location,omitempty"`
}

func encodeEvent(event, requestID string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, RequestID: requestID, Data: raw})
}
