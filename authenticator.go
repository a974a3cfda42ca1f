package sokoni

import "context"

// Auther issues and validates bearer tokens for verified identities.
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	cfg      Config
	logger   Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, cfg Config) *Auther {
	return &Auther{
		provider: provider,
		cfg:      cfg,
		tokens:   NewTokenService([]byte(cfg.SigningKey), cfg.Issuer, defLogger{}),
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.tokens = NewTokenService([]byte(s.cfg.SigningKey), s.cfg.Issuer, logger)
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credential and issues a login token. The token carries
// the account id, email and role and lives for the login TTL.
func (s *Auther) Login(ctx context.Context, email, password string) (string, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return "", nil, err
	}

	token, err := s.IssueLogin(identity)
	if err != nil {
		return "", nil, err
	}

	return token, identity, nil
}

// IssueLogin signs a login token for an already verified identity.
func (s *Auther) IssueLogin(identity Identity) (string, error) {
	return s.tokens.Generate(identity, s.cfg.LoginTokenTTL)
}

// ServiceToken signs a short-lived token for service-to-service calls. Both
// TTLs coexist; nothing else distinguishes the two token kinds.
func (s *Auther) ServiceToken(identity Identity) (string, error) {
	return s.tokens.Generate(identity, s.cfg.ServiceTokenTTL)
}

// SessionFromToken validates a raw bearer token.
func (s *Auther) SessionFromToken(raw string) (AuthClaims, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	return claims, nil
}

var _ Authenticator = (*Auther)(nil)
