package client

// Route describes the access rules of a navigation target.
type Route struct {
	Path string

	// Roles lists the standard roles allowed in. Empty means any
	// authenticated principal.
	Roles []string

	// Guardian marks routes reachable only through a guardian session.
	Guardian bool

	// Public routes never redirect.
	Public bool
}

// Verdict is the outcome of a routing decision.
type Verdict int

const (
	// Wait means the session is still restoring and no decision can be
	// made yet.
	Wait Verdict = iota
	Allow
	RedirectLogin
	RedirectUnauthorized
)

// Decision pairs a verdict with the path the caller attempted, so a login
// redirect can return there afterwards.
type Decision struct {
	Verdict Verdict
	From    string
}

// Decide evaluates a route against a session snapshot. It is pure: no
// network, no store mutation, deterministic for a given pair of inputs.
func Decide(sess Session, route Route) Decision {
	if route.Public {
		return Decision{Verdict: Allow, From: route.Path}
	}
	if sess.Loading {
		return Decision{Verdict: Wait, From: route.Path}
	}

	if route.Guardian {
		if sess.Guardian != nil && sess.AccessToken != "" {
			return Decision{Verdict: Allow, From: route.Path}
		}
		return Decision{Verdict: RedirectLogin, From: route.Path}
	}

	if sess.User == nil || sess.AccessToken == "" {
		if sess.Guardian != nil && sess.AccessToken != "" {
			// A guardian session holds a token but never a role.
			return Decision{Verdict: RedirectUnauthorized, From: route.Path}
		}
		return Decision{Verdict: RedirectLogin, From: route.Path}
	}

	if len(route.Roles) == 0 {
		return Decision{Verdict: Allow, From: route.Path}
	}
	for _, role := range route.Roles {
		if role == sess.User.Role {
			return Decision{Verdict: Allow, From: route.Path}
		}
	}
	return Decision{Verdict: RedirectUnauthorized, From: route.Path}
}
