package domain

// Credential is what an identity provider hands back on success. Either field
// may be empty when a backend answered with a partial body.
type Credential struct {
	AccessToken string
	Identity    *Identity
}

// Session is a consistent point-in-time view of the session state.
type Session struct {
	AccessToken string
	Identity    *Identity
	Loading     bool
}

// Authenticated is false whenever there is no token, whatever Identity holds.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// GuardDecision is the outcome of a protected-route check.
type GuardDecision int

const (
	GuardAllow GuardDecision = iota
	GuardWait
	GuardRedirectLogin
)

func (d GuardDecision) String() string {
	switch d {
	case GuardAllow:
		return "allow"
	case GuardWait:
		return "wait"
	case GuardRedirectLogin:
		return "redirect_login"
	default:
		return "unknown"
	}
}

// Guard decides whether a protected screen may render. Screens wait while the
// silent restore is still running.
func (s Session) Guard(requireSuper bool) GuardDecision {
	if s.Loading {
		return GuardWait
	}
	if !s.Authenticated() || s.Identity == nil {
		return GuardRedirectLogin
	}
	if requireSuper && !s.Identity.IsSuper() {
		return GuardRedirectLogin
	}
	return GuardAllow
}
