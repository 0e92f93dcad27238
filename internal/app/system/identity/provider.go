// Package identity is the service's identity provider: password credentials,
// account creation and signed session tokens.
package identity

import (
	"context"
	"errors"

	credentialstore "github.com/wastehub/wastehub/internal/app/store/credentials"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CredentialStore persists credentials.
type CredentialStore interface {
	Create(ctx context.Context, c credentialstore.Credential) (credentialstore.Credential, error)
	GetByEmail(ctx context.Context, email string) (credentialstore.Credential, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Provider struct {
	creds CredentialStore
}

func NewProvider(creds CredentialStore) *Provider {
	return &Provider{creds: creds}
}

// ErrBadCredentials is deliberately vague about which half was wrong.
var ErrBadCredentials = &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid email or password"}

// CreateAccount registers email with role and returns the new identity id.
// A registered email yields a Conflict error.
func (p *Provider) CreateAccount(ctx context.Context, email, password, role string) (primitive.ObjectID, error) {
	email = normalize.Email(email)
	if email == "" {
		return primitive.NilObjectID, apperr.Validation("email is required")
	}
	if len(password) < MinPasswordLength {
		return primitive.NilObjectID, apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return primitive.NilObjectID, err
	}
	c, err := p.creds.Create(ctx, credentialstore.Credential{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return c.ID, nil
}

// Authenticate checks a password and returns the matching credential.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (credentialstore.Credential, error) {
	c, err := p.creds.GetByEmail(ctx, normalize.Email(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return credentialstore.Credential{}, ErrBadCredentials
	}
	if err != nil {
		return credentialstore.Credential{}, err
	}
	if !VerifyPassword(c.PasswordHash, password) {
		return credentialstore.Credential{}, ErrBadCredentials
	}
	return c, nil
}

// RemoveAccount deletes an identity. Used to undo a failed provisioning.
func (p *Provider) RemoveAccount(ctx context.Context, id primitive.ObjectID) error {
	return p.creds.Delete(ctx, id)
}
