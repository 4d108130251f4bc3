// Package influxdb records connectivity telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Client implements
// events.Recorder, so the link connector, the transport reconnector and the
// supervisor can report link attempts, session failures, rest cycles and
// heartbeats without knowing about InfluxDB.
//
// # Usage
//
//	client, err := influxdb.New(cfg.InfluxDB, cfg.Device.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	connector.SetRecorder(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback wrapped in ErrWriteFailed. Points written while the device is
// offline are held by the client library's retry buffer.
package influxdb
