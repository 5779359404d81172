package migration

import (
	"crypto/sha256"
	"encoding/hex"
)

// Script is a single migration loaded from disk.
type Script struct {
	Version     string // "001", the digit run after the V prefix
	Description string // "create_users", everything between "__" and ".sql"
	SQL         string // full file contents, untrimmed
	Checksum    string // SHA-256 hex digest of SQL
	Filename    string // base name of the source file
}

// Catalog is the ordered set of scripts produced by one Load.
type Catalog []Script

// Lookup returns the script with the given version.
func (c Catalog) Lookup(version string) (Script, bool) {
	for _, s := range c {
		if s.Version == version {
			return s, true
		}
	}

	return Script{}, false
}

// Versions returns the catalog versions in order.
func (c Catalog) Versions() []string {
	vs := make([]string, len(c))
	for i, s := range c {
		vs[i] = s.Version
	}

	return vs
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
