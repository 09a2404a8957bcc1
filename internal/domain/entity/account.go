// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Account is a registered identity that can log in to the lecture library.
type Account struct {
	ID             uuid.UUID // The Global Unique Identifier (GUID) for the account.
	Identifier     string    // Username or email exactly as entered at signup (trimmed).
	CredentialHash string    // bcrypt hash of the credential, never the plaintext.
	Role           Role      // Assigned once at creation, changed only administratively.
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FoldKey returns the case-insensitive comparison key for identifiers and folder names.
// Full Unicode case folding is applied so that e.g. "STRASSE" and "straße" collide.
func FoldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
