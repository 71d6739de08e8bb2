package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/vainnor/delivery-tracking/models"
)

type stubStore struct {
	mu        sync.Mutex
	appended  []*models.PositionSample
	appendErr error
	latest    *models.PositionSample
	latestErr error
}

func (s *stubStore) Append(ctx context.Context, sample *models.PositionSample) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	s.appended = append(s.appended, sample)
	return int64(len(s.appended)), nil
}

func (s *stubStore) LatestFor(ctx context.Context, deliveryID string) (*models.PositionSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	return s.latest, nil
}

func (s *stubStore) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func fptr(f float64) *float64 { return &f }

func validUpdate() models.LocationUpdate {
	return models.LocationUpdate{
		DeliveryID: "D1",
		DriverID:   "Drv1",
		Latitude:   fptr(12.97),
		Longitude:  fptr(77.59),
		Speed:      fptr(32.5),
		Heading:    fptr(180),
	}
}

func decodeEnvelope(t *testing.T, raw []byte) (Envelope, map[string]any) {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	var data map[string]any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("bad envelope data: %v", err)
		}
	}
	return env, data
}

func TestSubmitSampleRejectsMissingFields(t *testing.T) {
	hub := NewHub()
	store := &stubStore{}
	engine := NewEngine(hub, store, time.Second)

	member := newTestClient(hub, 1)
	hub.Register(member)
	hub.Join(member, DeliveryRoom("D1"))

	cases := map[string]models.LocationUpdate{
		"missing deliveryId": {DriverID: "Drv1", Latitude: fptr(1), Longitude: fptr(1)},
		"missing driverId":   {DeliveryID: "D1", Latitude: fptr(1), Longitude: fptr(1)},
		"missing lat":        {DeliveryID: "D1", DriverID: "Drv1", Longitude: fptr(1)},
		"missing lng":        {DeliveryID: "D1", DriverID: "Drv1", Latitude: fptr(1)},
	}
	for name, upd := range cases {
		err := engine.SubmitSample(context.Background(), upd)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", name, err)
		}
	}

	if store.appendCount() != 0 {
		t.Fatalf("rejected samples must not be persisted, got %d appends", store.appendCount())
	}
	select {
	case msg := <-member.send:
		t.Fatalf("rejected sample was fanned out: %s", msg)
	default:
	}
}

func TestSubmitSampleRejectsNonFiniteCoordinates(t *testing.T) {
	engine := NewEngine(NewHub(), &stubStore{}, time.Second)

	upd := validUpdate()
	upd.Latitude = fptr(math.NaN())
	err := engine.SubmitSample(context.Background(), upd)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for NaN latitude, got %v", err)
	}

	upd = validUpdate()
	upd.Longitude = fptr(math.Inf(1))
	if err := engine.SubmitSample(context.Background(), upd); err == nil {
		t.Fatal("expected error for infinite longitude")
	}
}

func TestSubmitSamplePersistsThenFansOut(t *testing.T) {
	hub := NewHub()
	store := &stubStore{}
	engine := NewEngine(hub, store, time.Second)

	customer := newTestClient(hub, 4)
	admin := newTestClient(hub, 4)
	hub.Register(customer)
	hub.Register(admin)
	hub.Join(customer, DeliveryRoom("D1"))
	hub.Join(admin, AdminRoom)

	if err := engine.SubmitSample(context.Background(), validUpdate()); err != nil {
		t.Fatalf("SubmitSample: %v", err)
	}

	if store.appendCount() != 1 {
		t.Fatalf("expected 1 persisted sample, got %d", store.appendCount())
	}
	if store.appended[0].RecordedAt.IsZero() {
		t.Fatal("server timestamp was not assigned")
	}

	env, data := decodeEnvelope(t, <-customer.send)
	if env.Event != EventTrackingUpdate {
		t.Fatalf("expected %s, got %s", EventTrackingUpdate, env.Event)
	}
	if data["deliveryId"] != "D1" || data["driverId"] != "Drv1" {
		t.Fatalf("unexpected trackingUpdate payload: %v", data)
	}
	if _, ok := data["speed"]; !ok {
		t.Fatal("trackingUpdate must carry speed")
	}

	env, data = decodeEnvelope(t, <-admin.send)
	if env.Event != EventTrackingUpdateAdmin {
		t.Fatalf("expected %s, got %s", EventTrackingUpdateAdmin, env.Event)
	}
	if _, ok := data["speed"]; ok {
		t.Fatal("admin payload must not carry speed")
	}
	if _, ok := data["heading"]; ok {
		t.Fatal("admin payload must not carry heading")
	}
}

func TestSubmitSampleKeepsClientTimestamp(t *testing.T) {
	store := &stubStore{}
	engine := NewEngine(NewHub(), store, time.Second)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	upd := validUpdate()
	upd.Timestamp = &ts
	if err := engine.SubmitSample(context.Background(), upd); err != nil {
		t.Fatalf("SubmitSample: %v", err)
	}
	if !store.appended[0].RecordedAt.Equal(ts) {
		t.Fatalf("expected client timestamp %v, got %v", ts, store.appended[0].RecordedAt)
	}
}

func TestSubmitSampleStoreFailureSuppressesFanOut(t *testing.T) {
	hub := NewHub()
	store := &stubStore{appendErr: errors.New("connection refused")}
	engine := NewEngine(hub, store, time.Second)

	customer := newTestClient(hub, 1)
	admin := newTestClient(hub, 1)
	hub.Register(customer)
	hub.Register(admin)
	hub.Join(customer, DeliveryRoom("D1"))
	hub.Join(admin, AdminRoom)

	err := engine.SubmitSample(context.Background(), validUpdate())
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	select {
	case msg := <-customer.send:
		t.Fatalf("unpersisted sample reached the delivery room: %s", msg)
	default:
	}
	select {
	case msg := <-admin.send:
		t.Fatalf("unpersisted sample reached the admin room: %s", msg)
	default:
	}
}

func TestSubmitSamplePreservesOrderPerDelivery(t *testing.T) {
	hub := NewHub()
	store := &stubStore{}
	engine := NewEngine(hub, store, time.Second)

	member := newTestClient(hub, 8)
	hub.Register(member)
	hub.Join(member, DeliveryRoom("D1"))

	lats := []float64{10.0, 10.1, 10.2}
	for _, lat := range lats {
		upd := validUpdate()
		upd.Latitude = fptr(lat)
		if err := engine.SubmitSample(context.Background(), upd); err != nil {
			t.Fatalf("SubmitSample(%v): %v", lat, err)
		}
	}

	for _, want := range lats {
		_, data := decodeEnvelope(t, <-member.send)
		if got := data["lat"].(float64); got != want {
			t.Fatalf("out of order fan-out: expected lat %v, got %v", want, got)
		}
	}
}

func TestLastKnown(t *testing.T) {
	store := &stubStore{}
	engine := NewEngine(NewHub(), store, time.Second)

	sample, found, err := engine.LastKnown(context.Background(), "D1")
	if err != nil || found || sample != nil {
		t.Fatalf("expected none-found for fresh delivery, got %v %v %v", sample, found, err)
	}

	store.latest = &models.PositionSample{
		ID: 2, DeliveryID: "D1", DriverID: "Drv1",
		Latitude: 12.97, Longitude: 77.59,
		RecordedAt: time.Now().UTC(),
	}
	sample, found, err = engine.LastKnown(context.Background(), "D1")
	if err != nil || !found {
		t.Fatalf("expected sample, got found=%v err=%v", found, err)
	}
	if sample.ID != 2 {
		t.Fatalf("expected latest sample id 2, got %d", sample.ID)
	}

	store.latestErr = errors.New("query timeout")
	_, _, err = engine.LastKnown(context.Background(), "D1")
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	_, _, err = engine.LastKnown(context.Background(), "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for empty deliveryId, got %v", err)
	}
}
