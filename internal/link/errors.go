package link

import "errors"

var (
	// ErrEmptySSID is returned by drivers asked to join a network without an identifier.
	ErrEmptySSID = errors.New("link: empty ssid")

	// ErrCommandFailed is returned when an nmcli invocation fails.
	ErrCommandFailed = errors.New("link: nmcli command failed")
)
