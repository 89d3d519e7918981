package domain

const (
	RoleAdmin = "admin"
	RoleSuper = "super"
)

const (
	adminHomePath = "/"
	superHomePath = "/super-admin"
)

// Identity is the authenticated principal surfaced to the dashboard.
// Every field is optional on the wire; ID is zero until the backend resolves it.
type Identity struct {
	ID       int64  `json:"id,omitempty"       yaml:"id"`
	Username string `json:"username,omitempty" yaml:"username"`
	Email    string `json:"email,omitempty"    yaml:"email"`
	Name     string `json:"name,omitempty"     yaml:"name"`
	Role     string `json:"role,omitempty"     yaml:"role"`
	Phone    string `json:"phone,omitempty"    yaml:"phone"`
}

// IsSuper reports whether the identity carries the elevated role.
func (i *Identity) IsSuper() bool {
	return i != nil && i.Role == RoleSuper
}

// Clone returns a copy the caller may keep without aliasing session state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// HomePath is where the dashboard lands after a successful login.
func HomePath(i *Identity) string {
	if i.IsSuper() {
		return superHomePath
	}
	return adminHomePath
}
