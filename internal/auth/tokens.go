package auth

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/knowyournotes/catalog-server/internal/id"
)

// TokenService verifies (and, for development tooling, issues) PASETO
// v4.local identity tokens.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	issuer       string
	audience     string
	now          func() time.Time
}

// NewTokenService creates a token service from a hex-encoded key.
func NewTokenService(keyHex, issuer, audience string) (*TokenService, error) {
	if err := validateKeyHex(keyHex); err != nil {
		return nil, err
	}

	keyBytes, _ := hex.DecodeString(keyHex)
	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey: key,
		issuer:       issuer,
		audience:     audience,
		now:          time.Now,
	}, nil
}

// IssueToken creates a token for userID valid for ttl.
// The server itself never issues tokens; the seed command and tests do.
func (s *TokenService) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(s.issuer)
	token.SetSubject(userID)
	token.SetAudience(s.audience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))

	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("user_id", userID)
	if email != "" {
		//nolint:errcheck // Token.Set only errors on invalid types, which we control
		_ = token.Set("email", email)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken decrypts and validates a token.
// Returns the claims if valid, or an error if invalid or expired.
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(s.audience))
	parser.AddRule(paseto.IssuedBy(s.issuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("invalid token: missing subject")
	}

	return &claims, nil
}
