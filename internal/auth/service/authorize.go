package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/makerden/memberauth/pkg/idx"
	"github.com/makerden/memberauth/pkg/slogx"
)

var (
	// Pre-redirect-resolution failures. No safe redirect target is known
	// yet, so the handler renders these as plain 400 responses.
	ErrInvalidClient   = errors.New("invalid_client")
	ErrInvalidRedirect = errors.New("invalid_redirect")

	// ErrLoginRequired means the member must (re)authenticate before the
	// request can proceed. The handler clears the session cookie and
	// redirects to the login page with a continue_to back-link.
	ErrLoginRequired = errors.New("login_required")
)

// RedirectError is a post-resolution failure: a safe redirect target is
// known, so the error travels to the client application via the redirect's
// error/error_description parameters instead of an HTTP error body.
// RedirectURI, State and Fragment are filled in by ValidateRequest so the
// handler can build the error redirect without re-resolving anything.
type RedirectError struct {
	Code        string
	Description string

	RedirectURI string
	State       string
	Fragment    bool
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Flow is the closed set of supported response types. The two
// space-delimited implicit forms normalize to FlowIDTokenToken regardless
// of token order.
type Flow int

const (
	FlowCode Flow = iota
	FlowIDToken
	FlowIDTokenToken
)

// ParseResponseType maps a raw response_type value onto the flow enum.
func ParseResponseType(raw string) (Flow, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	switch len(fields) {
	case 1:
		switch fields[0] {
		case "code":
			return FlowCode, true
		case "id_token":
			return FlowIDToken, true
		}
	case 2:
		if (fields[0] == "id_token" && fields[1] == "token") ||
			(fields[0] == "token" && fields[1] == "id_token") {
			return FlowIDTokenToken, true
		}
	}
	return 0, false
}

// String returns the canonical response_type token bound into consent
// tokens.
func (f Flow) String() string {
	switch f {
	case FlowCode:
		return "code"
	case FlowIDToken:
		return "id_token"
	case FlowIDTokenToken:
		return "id_token token"
	}
	return "unknown"
}

// Implicit reports whether tokens are delivered in the redirect fragment.
func (f Flow) Implicit() bool { return f != FlowCode }

// scopeTokenRE is the restricted character class for scope tokens.
var scopeTokenRE = regexp.MustCompile(`^[a-z][a-z0-9_:.-]*$`)

// Session is the authenticated member context behind /oauth/authorize.
type Session struct {
	UserID   string
	AuthTime time.Time
}

// AuthorizeQuery carries the raw authorization request parameters.
type AuthorizeQuery struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        string
	State        string
	Nonce        string
	Prompt       string
	MaxAge       string
	ResponseMode string
}

// AuthorizeParams is the normalized parameter bundle produced by validation.
type AuthorizeParams struct {
	Client       domain.Client
	RedirectURI  string // full URI as provided (query preserved), or the sole registered callback
	Flow         Flow
	Scopes       []string // effective granted set
	State        string
	Nonce        string
	ResponseMode string
}

// AuthorizeResult describes the redirect that completes an authorization.
type AuthorizeResult struct {
	RedirectURI string
	Params      url.Values
	Fragment    bool
}

// AuthorizeService validates authorization requests and mints grants on
// consent. It holds no per-request state: the two-leg handshake is carried
// entirely by the consent token.
type AuthorizeService struct {
	Store     store.Store
	Codec     *ConsentCodec
	IDTokens  *IDTokenService
	CodeTTL   time.Duration
	AccessTTL time.Duration
}

// ValidateRequest checks an authorization request in the order the protocol
// demands: client first, then the redirect target, then everything else.
// Failures before the redirect target is resolved return sentinel errors;
// failures after return *RedirectError, and ErrLoginRequired signals a
// forced re-authentication.
func (s *AuthorizeService) ValidateRequest(ctx context.Context, q AuthorizeQuery, sess *Session) (*AuthorizeParams, error) {
	log := slogx.FromContext(ctx)

	clientID := strings.TrimSpace(q.ClientID)
	if clientID == "" {
		return nil, ErrInvalidClient
	}
	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	redirectURI, err := resolveRedirect(client, strings.TrimSpace(q.RedirectURI))
	if err != nil {
		log.Info("authorize: redirect resolution failed", "client_id", clientID, "err", err)
		return nil, err
	}

	// A safe redirect target is known from here on. Post-resolution
	// failures get the target stamped onto them for the handler.
	params, err := s.validateResolved(client, redirectURI, q, sess)
	if err != nil {
		var rerr *RedirectError
		if errors.As(err, &rerr) {
			rerr.RedirectURI = redirectURI
			rerr.State = q.State
			if flow, ok := ParseResponseType(q.ResponseType); ok {
				rerr.Fragment = flow.Implicit()
			}
		}
		return nil, err
	}
	return params, nil
}

func (s *AuthorizeService) validateResolved(client domain.Client, redirectURI string, q AuthorizeQuery, sess *Session) (*AuthorizeParams, error) {
	flow, ok := ParseResponseType(q.ResponseType)
	if !ok {
		return nil, &RedirectError{
			Code:        "unsupported_response_type",
			Description: "response_type must be code, id_token, or id_token token",
		}
	}

	scopes, rerr := resolveScopes(client, q.Scope)
	if rerr != nil {
		return nil, rerr
	}

	params := &AuthorizeParams{
		Client:       client,
		RedirectURI:  redirectURI,
		Flow:         flow,
		Scopes:       scopes,
		State:        q.State,
		Nonce:        strings.TrimSpace(q.Nonce),
		ResponseMode: strings.TrimSpace(q.ResponseMode),
	}

	if hasScope(scopes, domain.ScopeOpenID) {
		if err := s.checkOIDCRules(params, q, sess); err != nil {
			return nil, err
		}
	}

	return params, nil
}

// checkOIDCRules applies the extra constraints that attach once the openid
// scope is in play.
func (s *AuthorizeService) checkOIDCRules(p *AuthorizeParams, q AuthorizeQuery, sess *Session) error {
	if p.Flow.Implicit() {
		if strings.TrimSpace(q.RedirectURI) == "" || p.Nonce == "" {
			return &RedirectError{
				Code:        "invalid_request",
				Description: "implicit flows require redirect_uri and nonce",
			}
		}
	}

	if !redirectTargetSecure(p.RedirectURI) {
		return &RedirectError{
			Code:        "invalid_request",
			Description: "redirect_uri must use https",
		}
	}

	switch strings.TrimSpace(q.Prompt) {
	case "none":
		// No consent persistence exists, so silent authorization can
		// never succeed.
		return &RedirectError{
			Code:        "interaction_required",
			Description: "silent authorization is not supported",
		}
	case "login":
		return ErrLoginRequired
	}

	if maxAge := strings.TrimSpace(q.MaxAge); maxAge != "" {
		seconds, err := strconv.ParseInt(maxAge, 10, 64)
		if err != nil || seconds < 0 {
			return &RedirectError{
				Code:        "invalid_request",
				Description: "max_age must be a non-negative integer",
			}
		}
		if sess == nil || time.Since(sess.AuthTime) > time.Duration(seconds)*time.Second {
			return ErrLoginRequired
		}
	}

	if p.ResponseMode == "fragment" && p.Flow == FlowCode {
		return &RedirectError{
			Code:        "invalid_request",
			Description: "response_mode=fragment is not allowed for response_type=code",
		}
	}

	return nil
}

// Approve mints the grant for a verified, fresh consent submission and
// returns the success redirect. The scope set comes from the verified
// consent token content, never from the form.
func (s *AuthorizeService) Approve(ctx context.Context, p *AuthorizeParams, sess Session) (*AuthorizeResult, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	member, err := s.Store.Members().GetMemberByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	if p.State != "" {
		values.Set("state", p.State)
	}

	var accessToken string
	if p.Flow != FlowIDToken {
		accessToken, err = cryptox.GenerateToken(cryptox.TokenSizeAccess)
		if err != nil {
			return nil, err
		}
	}

	switch p.Flow {
	case FlowCode:
		code, err := cryptox.GenerateToken(cryptox.TokenSizeCode)
		if err != nil {
			return nil, err
		}
		if err := s.persistGrant(ctx, p, sess, cryptox.FingerprintToken(code), accessToken, now); err != nil {
			return nil, err
		}
		values.Set("code", code)

	case FlowIDTokenToken:
		// The access token rides the fragment; there is no code to
		// exchange later, but the grant row backs the resource endpoints.
		if err := s.persistGrant(ctx, p, sess, "", accessToken, now); err != nil {
			return nil, err
		}
		idToken, err := s.IDTokens.Issue(ctx, member, p.Client.ID, accessToken, p.Nonce, sess.AuthTime, p.Scopes)
		if err != nil {
			return nil, err
		}
		values.Set("token", accessToken)
		values.Set("id_token", idToken)

	case FlowIDToken:
		idToken, err := s.IDTokens.Issue(ctx, member, p.Client.ID, "", p.Nonce, sess.AuthTime, p.Scopes)
		if err != nil {
			return nil, err
		}
		values.Set("id_token", idToken)
	}

	log.Info("authorization granted",
		"client_id", p.Client.ID,
		"user_id", sess.UserID,
		"flow", p.Flow.String(),
		"scopes", strings.Join(p.Scopes, " "),
	)

	return &AuthorizeResult{
		RedirectURI: p.RedirectURI,
		Params:      values,
		Fragment:    p.Flow.Implicit() || p.ResponseMode == "fragment",
	}, nil
}

// persistGrant writes the Token row and its scopes in one transaction.
func (s *AuthorizeService) persistGrant(ctx context.Context, p *AuthorizeParams, sess Session, codeHash, accessToken string, now time.Time) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Tokens().CreateToken(ctx, domain.Token{
			ID:            idx.New().String(),
			UserID:        sess.UserID,
			ClientID:      p.Client.ID,
			CodeHash:      codeHash,
			AccessToken:   accessToken,
			RedirectURI:   p.RedirectURI,
			Nonce:         p.Nonce,
			AuthTime:      sess.AuthTime,
			Scopes:        p.Scopes,
			CodeExpiresAt: now.Add(s.CodeTTL),
			ExpiresAt:     now.Add(s.AccessTTL),
		})
	})
}

// resolveRedirect applies the matching rules: an explicit redirect_uri must
// be absolute, fragment-free and, ignoring its query component, exactly
// equal to a registered callback; an omitted redirect_uri resolves only
// when exactly one callback is registered. Ambiguity is never guessed.
func resolveRedirect(client domain.Client, redirectURI string) (string, error) {
	if redirectURI == "" {
		if len(client.CallbackURLs) != 1 {
			return "", ErrInvalidRedirect
		}
		return client.CallbackURLs[0], nil
	}

	u, err := url.Parse(redirectURI)
	if err != nil || !u.IsAbs() {
		return "", ErrInvalidRedirect
	}
	if u.Fragment != "" || strings.Contains(redirectURI, "#") {
		return "", ErrInvalidRedirect
	}

	stripped := *u
	stripped.RawQuery = ""
	if !client.AllowsCallback(stripped.String()) {
		return "", ErrInvalidRedirect
	}
	return redirectURI, nil
}

// resolveScopes computes the effective granted set: the intersection of the
// requested scopes with the client registration, or the full registered set
// when scope is omitted.
func resolveScopes(client domain.Client, rawScope string) ([]string, *RedirectError) {
	raw := strings.TrimSpace(rawScope)
	if raw == "" {
		if len(client.Scopes) == 0 {
			return nil, &RedirectError{Code: "invalid_scope", Description: "client has no registered scopes"}
		}
		return append([]string(nil), client.Scopes...), nil
	}

	requested := strings.Fields(raw)
	seen := make(map[string]struct{}, len(requested))
	granted := make([]string, 0, len(requested))
	for _, scope := range requested {
		if !scopeTokenRE.MatchString(scope) {
			return nil, &RedirectError{Code: "invalid_scope", Description: "malformed scope token"}
		}
		if _, dup := seen[scope]; dup {
			return nil, &RedirectError{Code: "invalid_scope", Description: "duplicate scope token"}
		}
		seen[scope] = struct{}{}
		if !client.AllowsScope(scope) {
			return nil, &RedirectError{Code: "invalid_scope", Description: "scope not registered for client"}
		}
		granted = append(granted, scope)
	}
	if len(granted) == 0 {
		return nil, &RedirectError{Code: "invalid_scope", Description: "no scopes granted"}
	}
	return granted, nil
}

// redirectTargetSecure requires https, with the loopback hosts exempt for
// local development.
func redirectTargetSecure(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	if u.Scheme == "https" {
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func hasScope(scopes []string, name string) bool {
	for _, s := range scopes {
		if s == name {
			return true
		}
	}
	return false
}
