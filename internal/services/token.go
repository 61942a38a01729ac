package services

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// InviteToken derives the token embedded in invite emails. It is a bare
// possession proof for the emailed link — whoever holds the link may claim
// the invite — not an authentication mechanism.
func InviteToken(id uuid.UUID, identifier string) string {
	sum := sha256.Sum256(append([]byte(id.String()), []byte(identifier)...))
	return hex.EncodeToString(sum[:])
}

// ValidateInviteToken recomputes and compares the token for the given
// invite and recipient identifier.
func ValidateInviteToken(token string, id uuid.UUID, identifier string) bool {
	return token == InviteToken(id, identifier)
}
