package schema

// IdentityAccountTable represents the 'identity.account' table
type IdentityAccountTable struct {
	Table       string
	ID          string
	Username    string
	Email       string
	Password    string
	DisplayName string
	Role        string
	IsActive    string
	CreatedAt   string
	UpdatedAt   string
}

// IdentityAccount is the schema definition for identity.account
var IdentityAccount = IdentityAccountTable{
	Table:       "identity.account",
	ID:          "id",
	Username:    "username",
	Email:       "email",
	Password:    "passwordhash",
	DisplayName: "displayname",
	Role:        "role",
	IsActive:    "isactive",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

// Columns returns all standard column names
func (t IdentityAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.Password, t.DisplayName,
		t.Role, t.IsActive, t.CreatedAt, t.UpdatedAt,
	}
}
