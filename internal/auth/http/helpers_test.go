package http

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/internal/auth/store/drivers/sqlite"
	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/makerden/memberauth/pkg/idx"
	"github.com/makerden/memberauth/pkg/jwtx"
	"github.com/makerden/memberauth/pkg/slogx"
)

const (
	testIssuer   = "https://auth.example.test"
	testLoginURL = "/login"
)

type testServer struct {
	router *Router
	store  *sqlite.Store
	keys   *jwtx.KeyManager

	member domain.Member
	client domain.Client
	secret string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
	require.NoError(t, err)

	member := domain.Member{
		ID:       idx.New().String(),
		Username: "alice",
		Name:     "Alice Example",
		Email:    "alice@example.test",
	}
	require.NoError(t, st.Members().CreateMember(ctx, member))

	client := domain.Client{
		ID:           idx.New().String(),
		Name:         "Workshop Booking",
		OwnerID:      member.ID,
		CallbackURLs: []string{"https://app.example.test/callback"},
		Scopes:       []string{domain.ScopeBasicInfo, domain.ScopeOpenID, domain.ScopeProfile, domain.ScopeEmail},
	}
	require.NoError(t, st.Clients().CreateClient(ctx, client))
	require.NoError(t, st.Managers().AddManager(ctx, domain.Manager{ClientID: client.ID, UserID: member.ID}))

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	secretHash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)
	require.NoError(t, st.ClientSecrets().CreateClientSecret(ctx, domain.ClientSecret{
		ID:          idx.New().String(),
		ClientID:    client.ID,
		SecretHash:  secretHash,
		Fingerprint: cryptox.FingerprintToken(secret),
	}))

	logger := slogx.New(slogx.Config{Service: "memberauth-test", Level: "error", Format: "text"})

	codec := &service.ConsentCodec{KeyManager: keys}
	idTokens := &service.IDTokenService{KeyManager: keys, Issuer: testIssuer, TTL: time.Hour}

	router := NewRouter(keys, testIssuer, testLoginURL, st, logger)
	router.ConsentCodec = codec
	router.AuthorizeService = &service.AuthorizeService{
		Store:     st,
		Codec:     codec,
		IDTokens:  idTokens,
		CodeTTL:   time.Minute,
		AccessTTL: time.Hour,
	}
	router.TokenService = &service.TokenService{Store: st}
	router.ResourceService = &service.ResourceService{Store: st, IDTokens: idTokens}
	router.ClientService = &service.ClientService{Store: st}
	router.ApplyRoutes()

	return &testServer{
		router: router,
		store:  st,
		keys:   keys,
		member: member,
		client: client,
		secret: secret,
	}
}

// sessionCookie mints a member-session cookie the way the external login
// surface would.
func (s *testServer) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := s.keys.SignClaims(jwtx.NewSessionClaims(testIssuer, s.member.ID, time.Now().Add(-time.Minute), time.Hour))
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) getAuthorize(t *testing.T, query url.Values, withSession bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/oauth/authorize?"+query.Encode(), nil)
	if withSession {
		req.AddCookie(s.sessionCookie(t))
	}
	return s.do(req)
}

func (s *testServer) postForm(t *testing.T, target string, form url.Values, withSession bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if withSession {
		req.AddCookie(s.sessionCookie(t))
	}
	return s.do(req)
}

var hiddenInputRE = regexp.MustCompile(`<input type="hidden" name="([^"]+)" value="([^"]*)">`)

// parseConsentForm extracts the hidden fields from a rendered consent page.
func parseConsentForm(t *testing.T, body string) url.Values {
	t.Helper()
	matches := hiddenInputRE.FindAllStringSubmatch(body, -1)
	require.NotEmpty(t, matches, "no hidden inputs found in consent page")

	form := url.Values{}
	for _, m := range matches {
		form.Set(m[1], html.UnescapeString(m[2]))
	}
	return form
}

// authorizeAndConsent walks the first leg and returns the consent form
// ready for submission.
func (s *testServer) authorizeAndConsent(t *testing.T, query url.Values) url.Values {
	t.Helper()
	rec := s.getAuthorize(t, query, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	form := parseConsentForm(t, rec.Body.String())
	form.Set("authorized", "1")
	return form
}
