package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mdung/gis-analytics-platform/internal/push"
)

// Fence is an active geofence with its boundary decoded for containment
// tests.
type Fence struct {
	ID       uuid.UUID
	Name     string
	Boundary orb.Geometry
}

// GeofenceProvider supplies the active fence set for each update. The DB
// implementation reads from gis.geofences; tests use a static slice.
type GeofenceProvider interface {
	ActiveGeofences(ctx context.Context) ([]Fence, error)
}

// PositionStore persists the latest position on the device record.
type PositionStore interface {
	SavePosition(ctx context.Context, deviceID uuid.UUID, lng, lat float64, ts time.Time) error
}

// Tracker turns device position updates into geofence ENTER and EXIT events
// and fans both out to the push hub. Presence state is held in memory; after
// a restart it is rebuilt from the device's persisted last position, so a
// device that was already inside a fence does not replay its ENTER and a
// crossing that straddles the restart is still detected.
type Tracker struct {
	fences      GeofenceProvider
	store       PositionStore
	broadcaster push.Broadcaster

	mu     sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
	inside map[uuid.UUID]map[uuid.UUID]Fence
}

func NewTracker(fences GeofenceProvider, store PositionStore, b push.Broadcaster) *Tracker {
	if b == nil {
		b = push.LogBroadcaster{}
	}
	return &Tracker{
		fences:      fences,
		store:       store,
		broadcaster: b,
		locks:       make(map[uuid.UUID]*sync.Mutex),
		inside:      make(map[uuid.UUID]map[uuid.UUID]Fence),
	}
}

// Update processes one position report. The whole read-compare-write sequence
// runs under a per-device lock so two updates for the same device can never
// interleave, while different devices proceed in parallel.
func (t *Tracker) Update(ctx context.Context, device *Device, lng, lat float64, ts time.Time) ([]push.GeofenceEvent, error) {
	lock := t.deviceLock(device.ID)
	lock.Lock()
	defer lock.Unlock()

	fences, err := t.fences.ActiveGeofences(ctx)
	if err != nil {
		return nil, err
	}

	point := orb.Point{lng, lat}
	now := make(map[uuid.UUID]Fence)
	for _, f := range fences {
		if contains(f.Boundary, point) {
			now[f.ID] = f
		}
	}

	t.mu.Lock()
	prev, seen := t.inside[device.ID]
	t.mu.Unlock()

	// No in-memory state yet: rebuild the previous containment set from the
	// persisted last position, if there is one.
	if !seen && device.LastLng != nil && device.LastLat != nil {
		prevPoint := orb.Point{*device.LastLng, *device.LastLat}
		prev = make(map[uuid.UUID]Fence)
		for _, f := range fences {
			if contains(f.Boundary, prevPoint) {
				prev[f.ID] = f
			}
		}
	}

	var events []push.GeofenceEvent
	for id, f := range now {
		if _, was := prev[id]; !was {
			events = append(events, t.event(device, f, push.EventEnter, lng, lat, ts))
		}
	}
	for id, f := range prev {
		if _, still := now[id]; !still {
			events = append(events, t.event(device, f, push.EventExit, lng, lat, ts))
		}
	}

	// Persist first, then commit the in-memory presence. A failed save keeps
	// the old state so the crossing is re-detected on the next update instead
	// of being swallowed.
	if t.store != nil {
		if err := t.store.SavePosition(ctx, device.ID, lng, lat, ts); err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	t.inside[device.ID] = now
	t.mu.Unlock()

	position := push.DevicePosition{
		DeviceID:   device.ID,
		DeviceCode: device.Code,
		DeviceName: device.Name,
		Longitude:  lng,
		Latitude:   lat,
		Timestamp:  ts,
	}
	t.broadcaster.Publish(push.DevicesDestination, position)
	t.broadcaster.Publish(push.DeviceDestination(device.Code), position)

	for _, ev := range events {
		t.broadcaster.Publish(push.GeofenceEventsDestination, ev)
		t.broadcaster.Publish(push.GeofenceDestination(ev.GeofenceID), ev)
		t.broadcaster.Publish(push.DeviceGeofenceDestination(device.Code), ev)
	}

	return events, nil
}

// Forget drops in-memory presence for a device, used when a device is
// deleted.
func (t *Tracker) Forget(deviceID uuid.UUID) {
	t.mu.Lock()
	delete(t.inside, deviceID)
	delete(t.locks, deviceID)
	t.mu.Unlock()
}

func (t *Tracker) event(device *Device, f Fence, eventType string, lng, lat float64, ts time.Time) push.GeofenceEvent {
	return push.GeofenceEvent{
		DeviceID:     device.ID,
		DeviceCode:   device.Code,
		DeviceName:   device.Name,
		GeofenceID:   f.ID,
		GeofenceName: f.Name,
		EventType:    eventType,
		Longitude:    lng,
		Latitude:     lat,
		Timestamp:    ts,
	}
}

func (t *Tracker) deviceLock(id uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[id] = lock
	}
	return lock
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}
