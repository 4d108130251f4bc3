// Package appworker runs the device's periodic application tasks.
//
// Each Ticker waits through its worker handle, so a reconfiguration can
// suspend it between runs like any other worker.
package appworker
