package domain

// Account is a backend-side login record. Only the auth stub holds these.
type Account struct {
	Identity
	PasswordHash string `json:"-"`
}
