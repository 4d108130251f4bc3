package mqtt

import "fmt"

// TopicPrefix is the base for all topics the uplink publishes.
const TopicPrefix = "uplink"

// Topics provides builders for the uplink's own MQTT topics. The command
// topic it subscribes to is configured, not built here.
//
//	topics := mqtt.Topics{DeviceID: "uplink-01"}
//	topics.Status() // "uplink/uplink-01/status"
type Topics struct {
	DeviceID string
}

// Status returns the retained online/offline status topic. It also carries
// the Last Will.
//
// Example: uplink/uplink-01/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.DeviceID)
}
