package domain

// Scope names recognized by the service. The catalog is closed: requests
// for anything outside it fail with invalid_scope.
const (
	ScopeBasicInfo = "read:basic_info"
	ScopeOpenID    = "openid"
	ScopeProfile   = "profile"
	ScopeEmail     = "email"
)

// Scope is a catalog entry. Descriptions are shown on the consent page.
type Scope struct {
	Name        string
	Description string
}

// ScopeCatalog returns the full closed scope catalog.
func ScopeCatalog() []Scope {
	return []Scope{
		{Name: ScopeBasicInfo, Description: "Read your member id and display name"},
		{Name: ScopeOpenID, Description: "Issue a signed identity token for you"},
		{Name: ScopeProfile, Description: "Include your display name in the identity token"},
		{Name: ScopeEmail, Description: "Include your email address in the identity token"},
	}
}

// ValidScope reports whether name is in the catalog.
func ValidScope(name string) bool {
	for _, s := range ScopeCatalog() {
		if s.Name == name {
			return true
		}
	}
	return false
}
