package db

import (
	"context"
	"database/sql"

	"github.com/vainnor/delivery-tracking/models"
)

// TrackingStore is the durable append-only log of position samples.
type TrackingStore struct {
	db *sql.DB
}

func NewTrackingStore(db *sql.DB) *TrackingStore {
	return &TrackingStore{db: db}
}

// Append inserts a position sample and returns the record id.
func (s *TrackingStore) Append(ctx context.Context, sample *models.PositionSample) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tracking_points (delivery_id, driver_id, latitude, longitude, speed, heading, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, sample.DeliveryID, sample.DriverID, sample.Latitude, sample.Longitude,
		sample.Speed, sample.Heading, sample.RecordedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LatestFor returns the most recent sample for a delivery, or nil when the
// delivery has no recorded samples yet. The nil result is not an error: a
// delivery that has not started moving has no tracking data.
func (s *TrackingStore) LatestFor(ctx context.Context, deliveryID string) (*models.PositionSample, error) {
	var sample models.PositionSample
	err := s.db.QueryRowContext(ctx, `
		SELECT id, delivery_id, driver_id, latitude, longitude, speed, heading, recorded_at
		FROM tracking_points
		WHERE delivery_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`, deliveryID).Scan(
		&sample.ID,
		&sample.DeliveryID,
		&sample.DriverID,
		&sample.Latitude,
		&sample.Longitude,
		&sample.Speed,
		&sample.Heading,
		&sample.RecordedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}
