package schema

// IdentityRefreshTokenTable represents the 'identity.refreshtoken' table
type IdentityRefreshTokenTable struct {
	Table         string
	ID            string
	UserID        string
	TokenHash     string
	UserAgent     string
	IPAddress     string
	CreatedAt     string
	ExpiresAt     string
	RevokedAt     string
	RevokedReason string
}

// IdentityRefreshToken is the schema definition for identity.refreshtoken
var IdentityRefreshToken = IdentityRefreshTokenTable{
	Table:         "identity.refreshtoken",
	ID:            "id",
	UserID:        "userid",
	TokenHash:     "tokenhash",
	UserAgent:     "useragent",
	IPAddress:     "ipaddress",
	CreatedAt:     "createdat",
	ExpiresAt:     "expiresat",
	RevokedAt:     "revokedat",
	RevokedReason: "revokedreason",
}

// Columns returns all standard column names
func (t IdentityRefreshTokenTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.TokenHash, t.UserAgent, t.IPAddress,
		t.CreatedAt, t.ExpiresAt, t.RevokedAt, t.RevokedReason,
	}
}
