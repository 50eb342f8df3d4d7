package service

import (
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier checks a Google ID token and returns its identity.
type GoogleVerifier interface {
	Verify(idToken string) (*GoogleIdentity, error)
}

// GoogleIDTokenVerifier validates tokens against Google's public certs.
type GoogleIDTokenVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

// NewGoogleIDTokenVerifier constructs a verifier bound to one OAuth client id.
func NewGoogleIDTokenVerifier(clientID string) *GoogleIDTokenVerifier {
	return &GoogleIDTokenVerifier{clientID: clientID}
}

// Verify implements GoogleVerifier.
func (v *GoogleIDTokenVerifier) Verify(idToken string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, fmt.Errorf("google sign-in is not configured")
	}
	if err := v.verifier.VerifyIDToken(idToken, []string{v.clientID}); err != nil {
		return nil, fmt.Errorf("verify google id token: %w", err)
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, fmt.Errorf("decode google id token: %w", err)
	}
	return &GoogleIdentity{Subject: claims.Sub, Email: claims.Email, Name: claims.Name}, nil
}
