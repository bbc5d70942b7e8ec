package relay

import (
	"encoding/json"
	"fmt"

	"Tandem/events"
)

// Frame ops
const (
	opSubscribe = "subscribe"
	opPublish   = "publish"
	opMessage   = "message"
)

// frame is the relay envelope in both directions
type frame struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"d,omitempty"`
}

// StationTopic carries broadcasts for every member of a station
func StationTopic(stationID string) string {
	return fmt.Sprintf("station.%s", stationID)
}

// UserTopic carries messages addressed to one member, such as kicks
func UserTopic(userID, stationID string) string {
	return fmt.Sprintf("user.%s.station.%s", userID, stationID)
}

// DestinationTopic is where station commands are published
func DestinationTopic(stationID string, dest events.Destination) string {
	return fmt.Sprintf("app.station.%s.%s", stationID, dest)
}
