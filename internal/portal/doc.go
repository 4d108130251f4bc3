// Package portal runs the provisioning portal used to enter network
// credentials after a reconfiguration request.
//
// Start brings up a local access point, serves a bare HTML form on it and
// blocks until the form is submitted with a valid primary network, the
// timeout expires, or the context is cancelled. The access point is always
// torn down before Start returns.
//
// Routes:
//
//	GET  /         credential form
//	POST /save     fields ssid1, pass1, ssid2, pass2
//	GET  /healthz  liveness
//
// Thread Safety: a Portal serves one Start call at a time.
package portal
