// Package auth provides admin authentication for mcp-router.
//
// # Admin Tokens
//
// The HTTP admin API is protected by HS256 JWTs signed with auth.jwt_secret
// (at least 32 bytes). Tokens carry the "mcp-router" issuer, a subject naming
// the administrator, and a mandatory expiry:
//
//	verifier, err := auth.NewJWTVerifier([]byte(secret))
//	token, err := verifier.Generate("alice", 24*time.Hour)
//	subject, err := verifier.Verify(token)
//
// Tokens are minted with "mcp-router token --subject NAME".
//
// # Request Context
//
// HTTPAuthMiddleware verifies the bearer token and stores an AuthContext in the
// request context. Handlers use Actor(ctx) to attribute audit log entries.
//
// API keys issued to MCP clients are not JWTs. They are opaque tokens checked
// by the grants package.
package auth
