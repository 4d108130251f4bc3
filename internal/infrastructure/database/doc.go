// Package database provides SQLite connectivity for Gray Logic Uplink.
//
// The only persistent state on the device is the credential store, a small
// namespaced key-value table. This package owns opening the file with the
// right pragmas and applying the embedded schema migrations.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is 0600 and its directory 0700; it holds Wi-Fi passphrases
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Credentials.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
