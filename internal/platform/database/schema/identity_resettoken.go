package schema

// IdentityResetTokenTable represents the 'identity.resettoken' table
type IdentityResetTokenTable struct {
	Table     string
	ID        string
	UserID    string
	TokenHash string
	Used      string
	CreatedAt string
	ExpiresAt string
	UsedAt    string
}

// IdentityResetToken is the schema definition for identity.resettoken
var IdentityResetToken = IdentityResetTokenTable{
	Table:     "identity.resettoken",
	ID:        "id",
	UserID:    "userid",
	TokenHash: "tokenhash",
	Used:      "used",
	CreatedAt: "createdat",
	ExpiresAt: "expiresat",
	UsedAt:    "usedat",
}

// Columns returns all standard column names
func (t IdentityResetTokenTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.TokenHash, t.Used, t.CreatedAt, t.ExpiresAt, t.UsedAt,
	}
}
