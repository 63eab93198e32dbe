package schema

// IdentityOtpTable represents the 'identity.otp' table
type IdentityOtpTable struct {
	Table      string
	ID         string
	Email      string
	CodeHash   string
	Attempts   string
	Verified   string
	Superseded string
	CreatedAt  string
	ExpiresAt  string
	VerifiedAt string
}

// IdentityOtp is the schema definition for identity.otp
var IdentityOtp = IdentityOtpTable{
	Table:      "identity.otp",
	ID:         "id",
	Email:      "email",
	CodeHash:   "codehash",
	Attempts:   "attempts",
	Verified:   "verified",
	Superseded: "superseded",
	CreatedAt:  "createdat",
	ExpiresAt:  "expiresat",
	VerifiedAt: "verifiedat",
}

// Columns returns all standard column names
func (t IdentityOtpTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.CodeHash, t.Attempts, t.Verified,
		t.Superseded, t.CreatedAt, t.ExpiresAt, t.VerifiedAt,
	}
}
