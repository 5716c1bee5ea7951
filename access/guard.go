package access

// Redirect destinations returned by Guard.Check
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Session is the read side of the session store the guard consults
type Session interface {
	IsAuthenticated() bool
	CheckPermission(permission string) bool
}

// Decision is the outcome of a guard check. Redirect is empty when allowed.
type Decision struct {
	Allowed  bool
	Redirect string
	Missing  []string
}

// Guard gates routes and commands on the session's permissions
type Guard struct {
	session Session
}

func NewGuard(session Session) *Guard {
	return &Guard{session: session}
}

// Check allows when the session is authenticated and holds every required permission
func (g *Guard) Check(required ...string) Decision {
	if g.session == nil || !g.session.IsAuthenticated() {
		return Decision{Redirect: LoginPath}
	}

	var missing []string
	for _, permission := range required {
		if !g.session.CheckPermission(permission) {
			missing = append(missing, permission)
		}
	}
	if len(missing) > 0 {
		return Decision{Redirect: UnauthorizedPath, Missing: missing}
	}
	return Decision{Allowed: true}
}

// CheckAny allows when the session holds at least one of the permissions
func (g *Guard) CheckAny(permissions ...string) Decision {
	if g.session == nil || !g.session.IsAuthenticated() {
		return Decision{Redirect: LoginPath}
	}
	if len(permissions) == 0 {
		return Decision{Allowed: true}
	}
	for _, permission := range permissions {
		if g.session.CheckPermission(permission) {
			return Decision{Allowed: true}
		}
	}
	return Decision{Redirect: UnauthorizedPath, Missing: permissions}
}
