package auth

// IdentityMirror is the server-side session view of the identity.
type IdentityMirror interface {
	Identity(sessionID string) (*Identity, bool)
	SetIdentity(sessionID string, id *Identity)
}

// ResolveIdentity finds the caller's identity. The session mirror wins;
// otherwise a valid identity token is accepted and copied back into the
// session. It reports false when neither source yields an identity.
func ResolveIdentity(mirror IdentityMirror, sessionID, token string, secretKey []byte) (*Identity, bool) {
	if sessionID != "" {
		if id, ok := mirror.Identity(sessionID); ok {
			return id, true
		}
	}

	if token == "" {
		return nil, false
	}

	id, _, err := ParseToken(token, secretKey)
	if err != nil {
		return nil, false
	}

	if sessionID != "" {
		mirror.SetIdentity(sessionID, id)
	}
	return id, true
}
