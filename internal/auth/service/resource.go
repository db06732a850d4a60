package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/httpx"
)

// ErrTokenNotValid covers every access-token failure: missing, unknown,
// expired. Callers must never distinguish which.
var ErrTokenNotValid = errors.New("token not valid")

// ResourceService serves scope-gated claims behind opaque bearer tokens.
// Tokens are resolved by direct lookup and expiry comparison; no signature
// verification applies because access tokens are random strings, not JWTs.
type ResourceService struct {
	Store    store.Store
	IDTokens *IDTokenService
}

// ResolveAccessToken implements httpx.TokenResolver for the bearer
// middleware.
func (s *ResourceService) ResolveAccessToken(ctx context.Context, raw string) (httpx.BearerToken, error) {
	grant, err := s.lookup(ctx, raw)
	if err != nil {
		return httpx.BearerToken{}, err
	}
	return httpx.BearerToken{
		UserID:   grant.UserID,
		ClientID: grant.ClientID,
		Scopes:   grant.Scopes,
	}, nil
}

// Verify is the introspection operation. Every failure yields the same
// uniform invalid shape.
func (s *ResourceService) Verify(ctx context.Context, raw string) authsdk.VerifyResponse {
	grant, err := s.lookup(ctx, raw)
	if err != nil {
		return authsdk.VerifyResponse{TokenValid: false}
	}
	return authsdk.VerifyResponse{
		TokenValid: true,
		UserID:     grant.UserID,
		ClientID:   grant.ClientID,
		Scope:      strings.Join(grant.Scopes, " "),
		ExpiresAt:  grant.ExpiresAt.Unix(),
	}
}

// AuthUser returns the minimal profile gated on read:basic_info.
func (s *ResourceService) AuthUser(ctx context.Context, userID string) (authsdk.AuthUserResponse, error) {
	member, err := s.Store.Members().GetMemberByID(ctx, userID)
	if err != nil {
		return authsdk.AuthUserResponse{}, err
	}
	return authsdk.AuthUserResponse{
		UserID:   member.ID,
		Username: member.Username,
		Name:     member.Name,
	}, nil
}

// UserInfo returns the OpenID Connect claims for the token's member. The
// subject is pairwise, matching what the ID token carries; profile and
// email claims appear only when granted.
func (s *ResourceService) UserInfo(ctx context.Context, clientID, userID string, scopes []string) (authsdk.UserInfoResponse, error) {
	member, err := s.Store.Members().GetMemberByID(ctx, userID)
	if err != nil {
		return authsdk.UserInfoResponse{}, err
	}

	resp := authsdk.UserInfoResponse{
		Sub: s.IDTokens.PairwiseSubject(clientID, member.ID),
	}
	if hasScope(scopes, domain.ScopeProfile) {
		resp.Name = member.Name
		resp.PreferredUsername = member.Username
	}
	if hasScope(scopes, domain.ScopeEmail) {
		resp.Email = member.Email
	}
	return resp, nil
}

func (s *ResourceService) lookup(ctx context.Context, raw string) (domain.Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Token{}, ErrTokenNotValid
	}
	grant, err := s.Store.Tokens().GetTokenByAccessToken(ctx, raw)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Token{}, ErrTokenNotValid
		}
		return domain.Token{}, err
	}
	if grant.Expired(time.Now()) {
		return domain.Token{}, ErrTokenNotValid
	}
	return grant, nil
}
