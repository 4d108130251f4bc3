// Package link establishes the device's wireless link using one credential
// pair at a time.
//
// Connector.Connect asks the Driver to associate, then polls the driver's
// status a bounded number of times with a blocking wait between polls. It
// never panics or returns an error: every failure, including an empty pair,
// is a false result. It does not tear the radio down on failure; the next
// attempt re-initiates.
//
// NMCLI is the production Driver, backed by NetworkManager's nmcli.
package link
