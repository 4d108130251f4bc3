package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-uplink/internal/events"
)

// measurementConnectivity holds one point per connectivity event.
const measurementConnectivity = "connectivity"

// Record writes a connectivity event. It implements events.Recorder and
// never blocks.
//
// The point is tagged with the device ID, the event kind and whether the
// kind is a failure, plus any caller tags; value is stored as the "value"
// field.
//
// Example point:
//
//	connectivity,device_id=uplink-01,failure=true,kind=session_open_failed value=3i
func (c *Client) Record(kind events.Kind, tags map[string]string, value int) {
	pointTags := make(map[string]string, len(tags)+3)
	for k, v := range tags {
		pointTags[k] = v
	}
	pointTags["device_id"] = c.deviceID
	pointTags["kind"] = string(kind)
	if kind.IsFailure() {
		pointTags["failure"] = "true"
	} else {
		pointTags["failure"] = "false"
	}

	c.WritePoint(measurementConnectivity, pointTags, map[string]interface{}{
		"value": value,
	})
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsOpen() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writer.WritePoint(point)
}
