package domain

import "time"

// Audit event actions recorded by the identity service.
const (
	AuditTokenIssued    = "token.issued"
	AuditTokenRefreshed = "token.refreshed"
	AuditAPIKeyCreated  = "apikey.created"
	AuditAPIKeyRevoked  = "apikey.revoked"
	AuditAPIKeyRotated  = "apikey.rotated"
	AuditAPIKeyAuth     = "apikey.authenticated"
)

// AuditEntry is an append-only record of a security-relevant event. Entries
// never contain token or key material, only identifiers.
type AuditEntry struct {
	ID        string // ULID
	Actor     string // subject of the principal or key that triggered the event
	Action    string
	Detail    string
	CreatedAt time.Time
}
