package push

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// Destination names the core publishes to. The transport behind them (and its
// delivery guarantees) belong to the messaging collaborator, not to us.
const (
	DevicesDestination        = "device-positions"
	GeofenceEventsDestination = "geofence-events"
)

// DeviceDestination is the per-device position channel.
func DeviceDestination(code string) string {
	return DevicesDestination + "." + code
}

// GeofenceDestination is the per-geofence event channel.
func GeofenceDestination(id uuid.UUID) string {
	return GeofenceEventsDestination + "." + id.String()
}

// DeviceGeofenceDestination carries geofence events scoped to one device.
func DeviceGeofenceDestination(code string) string {
	return "device-events." + code + ".geofences"
}

// DevicePosition is the payload shape for position broadcasts.
type DevicePosition struct {
	DeviceID   uuid.UUID `json:"deviceId"`
	DeviceCode string    `json:"deviceCode"`
	DeviceName string    `json:"deviceName"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	Timestamp  time.Time `json:"timestamp"`
}

// GeofenceEvent is the payload shape for ENTER/EXIT crossings.
type GeofenceEvent struct {
	DeviceID     uuid.UUID `json:"deviceId"`
	DeviceCode   string    `json:"deviceCode"`
	DeviceName   string    `json:"deviceName"`
	GeofenceID   uuid.UUID `json:"geofenceId"`
	GeofenceName string    `json:"geofenceName"`
	EventType    string    `json:"eventType"` // ENTER or EXIT
	Longitude    float64   `json:"longitude"`
	Latitude     float64   `json:"latitude"`
	Timestamp    time.Time `json:"timestamp"`
}

const (
	EventEnter = "ENTER"
	EventExit  = "EXIT"
)

// Broadcaster hands a JSON-serializable payload to the push-messaging
// transport. Implementations must not block the caller on slow subscribers.
type Broadcaster interface {
	Publish(destination string, payload any)
}

// LogBroadcaster is the no-transport fallback used when no hub is wired: it
// just records the event so a broken transport never blocks position truth.
type LogBroadcaster struct{}

func (LogBroadcaster) Publish(destination string, payload any) {
	log.Printf("[push] %s %+v", destination, payload)
}
