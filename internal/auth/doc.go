// Package auth provides bearer-token authentication for sprut-gateway.
//
// # Authentication Method
//
// MCP clients authenticate with JWT tokens signed with HS256 using the
// configured jwt_secret. Tokens are issued out of band via the gateway's
// token subcommand; the sub claim carries the client ID that was persisted
// at issuance, and the name claim carries its display name.
//
// # Client Identities
//
// Every issued token corresponds to a stored client record:
//
//   - ID: UUID, the JWT subject
//   - Name: human-readable label given at issuance
//   - Revoked: revoked clients fail authentication even with a valid JWT
//
// # Request Authentication
//
// The MCP endpoint resolves bearer credentials through:
//
//	authn := auth.NewAuthenticator(verifier, store)
//	identity, err := authn.AuthenticateRequest(r)
//
// AuthenticateRequest parses the Authorization header, verifies the JWT,
// checks the client record still exists and is not revoked, and returns
// an Identity. Requests with no credentials at all fail with
// ErrNoCredentials so the caller can decide whether anonymous access is
// acceptable.
package auth
