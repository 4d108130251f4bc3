package credentials

import (
	"fmt"

	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/config"
)

// Label names a credential slot.
type Label string

const (
	Primary   Label = "primary"
	Secondary Label = "secondary"
)

// Store keys.
const (
	KeySSID1 = "ssid1"
	KeyPass1 = "pass1"
	KeySSID2 = "ssid2"
	KeyPass2 = "pass2"
)

// Pair is one network identifier and its secret.
type Pair struct {
	Label  Label
	SSID   string
	Secret string
}

// Empty reports whether the pair has no network identifier. An empty pair
// can never connect.
func (p Pair) Empty() bool {
	return p.SSID == ""
}

// Validate checks the pair against the IEEE 802.11 limits: SSIDs are at most
// 32 bytes and WPA passphrases at most 64. An entirely empty pair is valid
// (the slot is unused).
func (p Pair) Validate() error {
	if len(p.SSID) > config.MaxSSIDLength {
		return fmt.Errorf("%w: %s ssid longer than %d bytes", ErrInvalidPair, p.Label, config.MaxSSIDLength)
	}
	if len(p.Secret) > config.MaxSecretLength {
		return fmt.Errorf("%w: %s secret longer than %d bytes", ErrInvalidPair, p.Label, config.MaxSecretLength)
	}
	if p.SSID == "" && p.Secret != "" {
		return fmt.Errorf("%w: %s secret without ssid", ErrInvalidPair, p.Label)
	}
	return nil
}

// keys returns the store keys for the pair's slot.
func (l Label) keys() (ssidKey, secretKey string) {
	if l == Secondary {
		return KeySSID2, KeyPass2
	}
	return KeySSID1, KeyPass1
}

// String implements fmt.Stringer without exposing the secret.
func (p Pair) String() string {
	return fmt.Sprintf("%s(%q)", p.Label, p.SSID)
}
