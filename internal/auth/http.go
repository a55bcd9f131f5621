// ABOUTME: Bearer-token authentication of HTTP requests against issued clients
// ABOUTME: Verifies the Authorization header JWT and enforces revocation

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spruthub/sprut-gateway/internal/store"
)

// Request authentication errors
var (
	ErrNoCredentials = errors.New("no credentials provided")
	ErrClientRevoked = errors.New("client has been revoked")
)

// ClientStore is the subset of the store request authentication needs.
type ClientStore interface {
	GetClient(ctx context.Context, id string) (*store.Client, error)
	TouchClient(ctx context.Context, id string) error
}

// Authenticator resolves bearer credentials on incoming requests against
// the set of issued clients.
type Authenticator struct {
	verifier TokenVerifier
	clients  ClientStore
}

// NewAuthenticator creates an Authenticator backed by the given verifier.
// clients may be nil, in which case identities come solely from token claims
// and revocation is not enforced.
func NewAuthenticator(verifier TokenVerifier, clients ClientStore) *Authenticator {
	return &Authenticator{verifier: verifier, clients: clients}
}

// AuthenticateRequest verifies the request's Authorization header and returns
// the caller identity. The token's sub claim must name an issued client that
// still exists and is not revoked; the stored client name overrides the
// token's name claim. Requests without credentials fail with ErrNoCredentials
// so callers can distinguish "nothing presented" from "presented and bad".
func (a *Authenticator) AuthenticateRequest(r *http.Request) (*Identity, error) {
	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	identity, err := a.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	if a.clients == nil {
		return identity, nil
	}

	client, err := a.clients.GetClient(r.Context(), identity.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown client", ErrInvalidToken)
		}
		return nil, fmt.Errorf("looking up client: %w", err)
	}

	if client.Revoked {
		return nil, ErrClientRevoked
	}

	// Best effort; a failed touch never blocks the request.
	_ = a.clients.TouchClient(r.Context(), client.ID)

	return &Identity{ClientID: client.ID, ClientName: client.Name}, nil
}

// bearerToken extracts the bearer token from an Authorization header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrNoCredentials
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("%w: authorization scheme must be Bearer", ErrInvalidToken)
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrInvalidToken)
	}
	return token, nil
}
