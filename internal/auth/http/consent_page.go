package http

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/service"
)

//go:embed templates/consent.html
var templateFS embed.FS

var consentTemplate = template.Must(template.ParseFS(templateFS, "templates/consent.html"))

// consentPageData feeds the consent template. Every hidden field mirrors a
// value bound into the consent token so the callback can re-canonicalize
// the submission byte-for-byte.
type consentPageData struct {
	ClientName        string
	ClientDescription string
	ClientLogoURI     string
	Scopes            []domain.Scope

	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        string
	State        string
	Nonce        string
	ResponseMode string
	Time         int64
	AuthToken    string
}

func renderConsentPage(w http.ResponseWriter, p *service.AuthorizeParams, issuedAt int64, authToken string) error {
	data := consentPageData{
		ClientName:        p.Client.Name,
		ClientDescription: p.Client.Description,
		ClientLogoURI:     p.Client.LogoURI,
		Scopes:            grantedCatalog(p.Scopes),
		ClientID:          p.Client.ID,
		RedirectURI:       p.RedirectURI,
		ResponseType:      p.Flow.String(),
		Scope:             strings.Join(p.Scopes, " "),
		State:             p.State,
		Nonce:             p.Nonce,
		ResponseMode:      p.ResponseMode,
		Time:              issuedAt,
		AuthToken:         authToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	return consentTemplate.Execute(w, data)
}

// grantedCatalog returns the catalog entries for the granted set, in
// catalog order.
func grantedCatalog(granted []string) []domain.Scope {
	var out []domain.Scope
	for _, entry := range domain.ScopeCatalog() {
		for _, name := range granted {
			if entry.Name == name {
				out = append(out, entry)
				break
			}
		}
	}
	return out
}
