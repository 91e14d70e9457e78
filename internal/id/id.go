// Package id generates the prefixed identifiers used for every stored record.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each record kind.
const (
	PrefixUser         = "usr"
	PrefixSession      = "ses"
	PrefixPerson       = "per"
	PrefixTag          = "tag"
	PrefixRelationship = "rel"
)

// Generate creates an ID of the form prefix-nanoid, e.g. "per-V1StGXR8_Z5jdHi6B-myT".
// The nanoid part is 21 URL-safe characters.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// HasPrefix reports whether s looks like an ID generated with prefix.
// It does not check that the record exists.
func HasPrefix(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"-")
	return ok && rest != ""
}
