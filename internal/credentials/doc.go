// Package credentials persists the device's two Wi-Fi credential pairs in a
// namespaced key-value table.
//
// Every batch of reads or writes runs inside View or Update, which open a
// transaction, hand the callback a *Handle, and always release it. Pairs are
// read fresh from the store on every reconnect cycle; nothing is cached.
//
// Keys (within the namespace, default "wifi-config"):
//
//	ssid1, pass1   primary network
//	ssid2, pass2   secondary network
//
// A missing key reads as the empty string.
package credentials
