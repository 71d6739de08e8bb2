package realtime

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vainnor/delivery-tracking/models"
)

// Store is the durable tracking log the engine writes to and queries.
type Store interface {
	Append(ctx context.Context, sample *models.PositionSample) (int64, error)
	LatestFor(ctx context.Context, deliveryID string) (*models.PositionSample, error)
}

// Engine validates inbound position samples, persists them and fans them out
// to the delivery room and the admin aggregate room.
type Engine struct {
	hub          *Hub
	store        Store
	validate     *validator.Validate
	storeTimeout time.Duration
	now          func() time.Time
}

const defaultStoreTimeout = 3 * time.Second

func NewEngine(hub *Hub, store Store, storeTimeout time.Duration) *Engine {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Engine{
		hub:          hub,
		store:        store,
		validate:     validator.New(),
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// SubmitSample runs the ingestion path for one location update: validate,
// assign a server timestamp if the driver did not supply one, persist, then
// fan out. The returned error is for the submitting connection only; nothing
// is fanned out unless the sample was durably recorded.
func (e *Engine) SubmitSample(ctx context.Context, upd models.LocationUpdate) error {
	if err := e.validate.Struct(upd); err != nil {
		return &ValidationError{Message: "deliveryId, driverId, lat and lng are required"}
	}
	if !isFinite(*upd.Latitude) || !isFinite(*upd.Longitude) {
		return &ValidationError{Message: "lat and lng must be finite numbers"}
	}

	sample := &models.PositionSample{
		DeliveryID: upd.DeliveryID,
		DriverID:   upd.DriverID,
		Latitude:   *upd.Latitude,
		Longitude:  *upd.Longitude,
		Speed:      upd.Speed,
		Heading:    upd.Heading,
	}
	if upd.Timestamp != nil {
		sample.RecordedAt = *upd.Timestamp
	} else {
		sample.RecordedAt = e.now().UTC()
	}

	storeCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	id, err := e.store.Append(storeCtx, sample)
	if err != nil {
		log.Printf("Error appending sample for delivery %s: %v", sample.DeliveryID, err)
		return &PersistenceError{Op: "append", Err: err}
	}
	sample.ID = id

	e.fanOut(sample)
	return nil
}

// fanOut pushes the persisted sample to both rooms. The two deliveries are
// independent: a problem reaching one room never suppresses the other.
func (e *Engine) fanOut(sample *models.PositionSample) {
	update := models.TrackingUpdate{
		DeliveryID: sample.DeliveryID,
		DriverID:   sample.DriverID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Speed:      sample.Speed,
		Heading:    sample.Heading,
		Timestamp:  sample.RecordedAt,
	}
	if msg, err := encodeEvent(EventTrackingUpdate, "", update); err == nil {
		e.hub.Broadcast(DeliveryRoom(sample.DeliveryID), msg)
	} else {
		log.Printf("Error encoding trackingUpdate for delivery %s: %v", sample.DeliveryID, err)
	}

	adminUpdate := models.TrackingUpdateAdmin{
		DeliveryID: sample.DeliveryID,
		DriverID:   sample.DriverID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Timestamp:  sample.RecordedAt,
	}
	if msg, err := encodeEvent(EventTrackingUpdateAdmin, "", adminUpdate); err == nil {
		e.hub.Broadcast(AdminRoom, msg)
	} else {
		log.Printf("Error encoding trackingUpdateAdmin for delivery %s: %v", sample.DeliveryID, err)
	}
}

// LastKnown returns the most recent sample for a delivery. found is false
// when the delivery has no recorded samples yet, which is a normal result,
// not an error. The store query is bounded by the engine's store timeout.
func (e *Engine) LastKnown(ctx context.Context, deliveryID string) (sample *models.PositionSample, found bool, err error) {
	if deliveryID == "" {
		return nil, false, &ValidationError{Message: "deliveryId is required"}
	}

	storeCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	sample, err = e.store.LatestFor(storeCtx, deliveryID)
	if err != nil {
		log.Printf("Error querying last location for delivery %s: %v", deliveryID, err)
		return nil, false, &PersistenceError{Op: "query", Err: err}
	}
	if sample == nil {
		return nil, false, nil
	}
	return sample, true, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
