package realtime

import "context"

// OrderDispatcher routes a newly created order to eligible drivers, filtered
// by vehicle type, duty status and approval. Dispatch lives in the order
// service; the bus only declares the hook so a dispatcher can push offers
// through driver connections.
type OrderDispatcher interface {
	DispatchOrder(ctx context.Context, deliveryID, vehicleType string) error
}
