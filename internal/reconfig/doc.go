// Package reconfig watches the reset input and runs re-provisioning.
//
// When the input reads active, the monitor suspends every other worker,
// erases the stored networks, runs the provisioning portal and saves what
// the user entered. It then returns a restart request; the device comes
// back up on the new networks.
package reconfig
