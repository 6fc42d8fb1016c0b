package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/mdung/gis-analytics-platform/internal/push"
)

type staticFences struct {
	fences []Fence
}

func (s staticFences) ActiveGeofences(ctx context.Context) ([]Fence, error) {
	return s.fences, nil
}

type recordingStore struct {
	mu       sync.Mutex
	saves    int
	failNext int
}

func (r *recordingStore) SavePosition(ctx context.Context, deviceID uuid.UUID, lng, lat float64, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return errors.New("db unavailable")
	}
	r.saves++
	return nil
}

type captureBroadcaster struct {
	mu       sync.Mutex
	messages map[string]int
}

func (c *captureBroadcaster) Publish(destination string, payload any) {
	c.mu.Lock()
	if c.messages == nil {
		c.messages = map[string]int{}
	}
	c.messages[destination]++
	c.mu.Unlock()
}

func (c *captureBroadcaster) count(destination string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[destination]
}

func squareFence(name string, minLng, minLat, maxLng, maxLat float64) Fence {
	return Fence{
		ID:   uuid.New(),
		Name: name,
		Boundary: orb.Polygon{{
			{minLng, minLat}, {maxLng, minLat}, {maxLng, maxLat}, {minLng, maxLat}, {minLng, minLat},
		}},
	}
}

func TestTrackerEnterThenExit(t *testing.T) {
	fence := squareFence("warehouse", 106.0, 10.0, 107.0, 11.0)
	store := &recordingStore{}
	bc := &captureBroadcaster{}
	tr := NewTracker(staticFences{[]Fence{fence}}, store, bc)

	device := &Device{ID: uuid.New(), Code: "TRUCK-01", Name: "Truck 1"}
	ctx := context.Background()
	now := time.Now().UTC()

	// Outside the fence, no events.
	events, err := tr.Update(ctx, device, 105.0, 10.5, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events outside fence, got %+v", events)
	}

	// Move inside, expect ENTER.
	events, err = tr.Update(ctx, device, 106.5, 10.5, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != push.EventEnter {
		t.Fatalf("expected one ENTER, got %+v", events)
	}
	if events[0].GeofenceName != "warehouse" || events[0].DeviceCode != "TRUCK-01" {
		t.Errorf("event payload wrong: %+v", events[0])
	}

	// Stay inside, no repeat ENTER.
	events, err = tr.Update(ctx, device, 106.6, 10.6, now.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events while staying inside, got %+v", events)
	}

	// Leave, expect EXIT.
	events, err = tr.Update(ctx, device, 108.0, 10.5, now.Add(3*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != push.EventExit {
		t.Fatalf("expected one EXIT, got %+v", events)
	}

	if store.saves != 4 {
		t.Errorf("expected 4 persisted positions, got %d", store.saves)
	}
}

func TestTrackerFirstUpdateNeverExits(t *testing.T) {
	fence := squareFence("zone", 0, 0, 1, 1)
	tr := NewTracker(staticFences{[]Fence{fence}}, &recordingStore{}, &captureBroadcaster{})

	device := &Device{ID: uuid.New(), Code: "VAN-9"}
	events, err := tr.Update(context.Background(), device, 50, 50, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		if ev.EventType == push.EventExit {
			t.Fatalf("first update produced an EXIT: %+v", ev)
		}
	}
}

func TestTrackerBroadcastDestinations(t *testing.T) {
	fence := squareFence("dock", 106.0, 10.0, 107.0, 11.0)
	bc := &captureBroadcaster{}
	tr := NewTracker(staticFences{[]Fence{fence}}, &recordingStore{}, bc)

	device := &Device{ID: uuid.New(), Code: "TRUCK-02", Name: "Truck 2"}
	if _, err := tr.Update(context.Background(), device, 106.5, 10.5, time.Now()); err != nil {
		t.Fatal(err)
	}

	for _, dest := range []string{
		push.DevicesDestination,
		push.DeviceDestination("TRUCK-02"),
		push.GeofenceEventsDestination,
		push.GeofenceDestination(fence.ID),
		push.DeviceGeofenceDestination("TRUCK-02"),
	} {
		if bc.count(dest) != 1 {
			t.Errorf("destination %s received %d messages, want 1", dest, bc.count(dest))
		}
	}
}

func TestTrackerOverlappingFences(t *testing.T) {
	inner := squareFence("inner", 106.4, 10.4, 106.6, 10.6)
	outer := squareFence("outer", 106.0, 10.0, 107.0, 11.0)
	tr := NewTracker(staticFences{[]Fence{inner, outer}}, &recordingStore{}, &captureBroadcaster{})

	device := &Device{ID: uuid.New(), Code: "BIKE-1"}
	ctx := context.Background()

	events, err := tr.Update(ctx, device, 106.5, 10.5, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected ENTER for both fences, got %+v", events)
	}

	// Step out of the inner fence only.
	events, err = tr.Update(ctx, device, 106.9, 10.9, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != push.EventExit || events[0].GeofenceName != "inner" {
		t.Fatalf("expected single EXIT from inner, got %+v", events)
	}
}

func TestTrackerFailedSaveRedetectsCrossing(t *testing.T) {
	fence := squareFence("zone", 106.0, 10.0, 107.0, 11.0)
	store := &recordingStore{}
	bc := &captureBroadcaster{}
	tr := NewTracker(staticFences{[]Fence{fence}}, store, bc)

	device := &Device{ID: uuid.New(), Code: "TRUCK-03"}
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := tr.Update(ctx, device, 105.0, 10.5, now); err != nil {
		t.Fatal(err)
	}

	// The save fails while crossing into the fence: no event may be
	// broadcast and the presence state must not advance.
	store.failNext = 1
	if _, err := tr.Update(ctx, device, 106.5, 10.5, now.Add(time.Minute)); err == nil {
		t.Fatal("expected save error to propagate")
	}
	if bc.count(push.GeofenceEventsDestination) != 0 {
		t.Fatal("no event may be broadcast when the save fails")
	}

	// Next successful update inside still detects the ENTER.
	events, err := tr.Update(ctx, device, 106.5, 10.5, now.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != push.EventEnter {
		t.Fatalf("crossing was swallowed by the failed save, got %+v", events)
	}
}

func TestTrackerResumesFromPersistedPosition(t *testing.T) {
	fence := squareFence("zone", 106.0, 10.0, 107.0, 11.0)

	lng, lat := 106.5, 10.5
	device := &Device{ID: uuid.New(), Code: "TRUCK-04", LastLng: &lng, LastLat: &lat}

	// Fresh tracker, as after a restart. The device's persisted position is
	// already inside the fence, so staying inside emits nothing.
	tr := NewTracker(staticFences{[]Fence{fence}}, &recordingStore{}, &captureBroadcaster{})
	events, err := tr.Update(context.Background(), device, 106.6, 10.6, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no replayed ENTER after restart, got %+v", events)
	}

	// A second fresh tracker: moving out from the persisted inside position
	// still produces the EXIT.
	tr = NewTracker(staticFences{[]Fence{fence}}, &recordingStore{}, &captureBroadcaster{})
	events, err = tr.Update(context.Background(), device, 108.0, 10.5, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != push.EventExit {
		t.Fatalf("expected EXIT detected across restart, got %+v", events)
	}
}

func TestTrackerConcurrentDevices(t *testing.T) {
	fence := squareFence("zone", 106.0, 10.0, 107.0, 11.0)
	store := &recordingStore{}
	tr := NewTracker(staticFences{[]Fence{fence}}, store, &captureBroadcaster{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		device := &Device{ID: uuid.New(), Code: "D" + uuid.NewString()[:8]}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := tr.Update(context.Background(), device, 106.5, 10.5, time.Now()); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if store.saves != 200 {
		t.Errorf("expected 200 saves, got %d", store.saves)
	}
}
