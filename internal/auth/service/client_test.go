package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/makerden/memberauth/pkg/idx"
)

func TestRegisterClient(t *testing.T) {
	env := newTestEnv(t)
	svc := &ClientService{Store: env.store}
	ctx := context.Background()

	client, secret, err := svc.Register(ctx, env.member.ID, RegisterInput{
		Name:        "Door Controller",
		Description: "Opens the front door for members",
		LogoURI:     "https://door.example.test/logo.png",
		Callbacks:   []string{"https://door.example.test/cb"},
		Scopes:      []string{domain.ScopeBasicInfo},
	})
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	// The owner is a manager from the start.
	got, err := svc.Get(ctx, env.member.ID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "Door Controller", got.Name)
	assert.Equal(t, "Opens the front door for members", got.Description)
	assert.Equal(t, "https://door.example.test/logo.png", got.LogoURI)
	assert.Equal(t, env.member.ID, got.OwnerID)

	// The plaintext is never stored, only its hash and fingerprint.
	secrets, err := svc.ListSecrets(ctx, env.member.ID, client.ID)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, cryptox.FingerprintToken(secret), secrets[0].Fingerprint)
	assert.Equal(t, env.member.ID, secrets[0].IssuedBy)
	assert.NoError(t, cryptox.VerifySecret(secret, secrets[0].SecretHash))
}

func TestRegisterClientValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := &ClientService{Store: env.store}
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"empty name", RegisterInput{Name: "  ", Callbacks: []string{"https://a.example.test/cb"}}},
		{"no callbacks", RegisterInput{Name: "App"}},
		{"relative callback", RegisterInput{Name: "App", Callbacks: []string{"/cb"}}},
		{"callback with fragment", RegisterInput{Name: "App", Callbacks: []string{"https://a.example.test/cb#frag"}}},
		{"unknown scope", RegisterInput{Name: "App", Callbacks: []string{"https://a.example.test/cb"}, Scopes: []string{"admin:everything"}}},
		{"relative logo", RegisterInput{Name: "App", Callbacks: []string{"https://a.example.test/cb"}, LogoURI: "/logo.png"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, env.member.ID, tc.in)
			require.ErrorIs(t, err, ErrBadClientInput)
		})
	}
}

func TestClientManagerGating(t *testing.T) {
	env := newTestEnv(t)
	svc := &ClientService{Store: env.store}
	ctx := context.Background()

	outsider := domain.Member{ID: idx.New().String(), Username: "bob", Name: "Bob Outsider", Email: "bob@example.test"}
	require.NoError(t, env.store.Members().CreateMember(ctx, outsider))

	_, err := svc.Get(ctx, outsider.ID, env.client.ID)
	require.ErrorIs(t, err, ErrNotManager)

	err = svc.Update(ctx, outsider.ID, env.client.ID, UpdateOptions{})
	require.ErrorIs(t, err, ErrNotManager)

	err = svc.Delete(ctx, outsider.ID, env.client.ID)
	require.ErrorIs(t, err, ErrNotManager)

	_, _, err = svc.AddSecret(ctx, outsider.ID, env.client.ID)
	require.ErrorIs(t, err, ErrNotManager)

	// Unknown client reports not found before any manager check.
	_, err = svc.Get(ctx, env.member.ID, "no-such-client")
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestUpdateClient(t *testing.T) {
	env := newTestEnv(t)
	svc := &ClientService{Store: env.store}
	ctx := context.Background()

	name := "Renamed App"
	description := "Books workshop slots for members"
	logoURI := "https://new.example.test/logo.png"
	callbacks := []string{"https://new.example.test/cb", "https://new.example.test/alt"}
	scopes := []string{domain.ScopeBasicInfo, domain.ScopeOpenID}

	err := svc.Update(ctx, env.member.ID, env.client.ID, UpdateOptions{
		Name:        &name,
		Description: &description,
		LogoURI:     &logoURI,
		Callbacks:   &callbacks,
		Scopes:      &scopes,
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, env.member.ID, env.client.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, description, got.Description)
	assert.Equal(t, logoURI, got.LogoURI)
	assert.ElementsMatch(t, callbacks, got.CallbackURLs)
	assert.ElementsMatch(t, scopes, got.Scopes)

	t.Run("empty callback list rejected", func(t *testing.T) {
		empty := []string{}
		err := svc.Update(ctx, env.member.ID, env.client.ID, UpdateOptions{Callbacks: &empty})
		require.ErrorIs(t, err, ErrBadClientInput)
	})

	t.Run("relative logo rejected", func(t *testing.T) {
		bad := "logo.png"
		err := svc.Update(ctx, env.member.ID, env.client.ID, UpdateOptions{LogoURI: &bad})
		require.ErrorIs(t, err, ErrBadClientInput)
	})
}

func TestSecretRotation(t *testing.T) {
	env := newTestEnv(t)
	svc := &ClientService{Store: env.store}
	tokens := &TokenService{Store: env.store}
	ctx := context.Background()

	plaintext, fingerprint, err := svc.AddSecret(ctx, env.member.ID, env.client.ID)
	require.NoError(t, err)

	// Both the original and the new secret authenticate.
	for _, secret := range []string{env.secret, plaintext} {
		code, grant := mintGrant(t, env)
		_, err := tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "authorization_code",
			Code:         code,
			RedirectURI:  grant.RedirectURI,
			ClientID:     env.client.ID,
			ClientSecret: secret,
		})
		require.NoError(t, err)
	}

	// Deleting by fingerprint retires the old secret only.
	err = svc.DeleteSecret(ctx, env.member.ID, env.client.ID, cryptox.FingerprintToken(env.secret))
	require.NoError(t, err)

	secrets, err := svc.ListSecrets(ctx, env.member.ID, env.client.ID)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, fingerprint, secrets[0].Fingerprint)

	code, grant := mintGrant(t, env)
	_, err = tokens.Exchange(ctx, ExchangeRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  grant.RedirectURI,
		ClientID:     env.client.ID,
		ClientSecret: env.secret,
	})
	require.ErrorIs(t, err, ErrInvalidClient)

	t.Run("unknown fingerprint", func(t *testing.T) {
		err := svc.DeleteSecret(ctx, env.member.ID, env.client.ID, "no-such-fingerprint")
		require.Error(t, err)
	})
}

func TestManagerRoster(t *testing.T) {
	env := newTestEnv(t)
	svc := &ClientService{Store: env.store}
	ctx := context.Background()

	helper := domain.Member{ID: idx.New().String(), Username: "carol", Name: "Carol Helper", Email: "carol@example.test"}
	require.NoError(t, env.store.Members().CreateMember(ctx, helper))

	require.NoError(t, svc.AddManager(ctx, env.member.ID, env.client.ID, helper.ID))

	managers, err := svc.ListManagers(ctx, env.member.ID, env.client.ID)
	require.NoError(t, err)
	require.Len(t, managers, 2)

	// The new manager can act on the client.
	_, err = svc.Get(ctx, helper.ID, env.client.ID)
	require.NoError(t, err)

	t.Run("unknown member rejected", func(t *testing.T) {
		err := svc.AddManager(ctx, env.member.ID, env.client.ID, "no-such-member")
		require.ErrorIs(t, err, ErrMemberNotFound)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		err := svc.RemoveManager(ctx, helper.ID, env.client.ID, env.member.ID)
		require.ErrorIs(t, err, ErrMemberNotFound)
	})

	require.NoError(t, svc.RemoveManager(ctx, env.member.ID, env.client.ID, helper.ID))

	_, err = svc.Get(ctx, helper.ID, env.client.ID)
	require.ErrorIs(t, err, ErrNotManager)
}
