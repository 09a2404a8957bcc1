package auth

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"

	"lecturehall/config"
	"lecturehall/internal/domain/entity"
	"lecturehall/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const tokenIDBytes = 32

// sessionClaims is the JWT body of a session token.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// jwtTokenService signs session tokens with HMAC-SHA256.
type jwtTokenService struct {
	secret []byte
}

// NewTokenService is the constructor for jwtTokenService.
// Without session.secret a random key is generated, which is enough because sessions never outlive the process.
func NewTokenService(cfg *config.Config, logger *slog.Logger) (service.TokenService, error) {
	var secret []byte
	if cfg != nil && cfg.Session != nil && cfg.Session.Secret != "" {
		secret = []byte(cfg.Session.Secret)
	}

	if len(secret) == 0 {
		secret = make([]byte, tokenIDBytes)
		if _, err := rand.Read(secret); err != nil {
			return nil, errors.Wrap(err, "failed to generate session signing key")
		}
		if logger != nil {
			logger.Warn("session.secret not configured, using an ephemeral signing key")
		}
	}

	return NewTokenServiceWithSecret(secret), nil
}

// NewTokenServiceWithSecret creates a token service with an explicit signing key.
func NewTokenServiceWithSecret(secret []byte) service.TokenService {
	return &jwtTokenService{secret: secret}
}

// NewTokenID returns 32 random bytes encoded as unpadded base64url.
func (s *jwtTokenService) NewTokenID() (string, error) {
	buf := make([]byte, tokenIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random token id")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Sign encodes the claims into an HS256 JWT.
func (s *jwtTokenService) Sign(claims *service.TokenClaims) (string, error) {
	if claims == nil || claims.TokenID == "" {
		return "", errors.New("token id is required")
	}

	registered := jwt.RegisteredClaims{
		ID:       claims.TokenID,
		Subject:  claims.AccountID.String(),
		IssuedAt: jwt.NewNumericDate(claims.IssuedAt),
	}
	if !claims.ExpiresAt.IsZero() {
		registered.ExpiresAt = jwt.NewNumericDate(claims.ExpiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role:             claims.Role.String(),
		RegisteredClaims: registered,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}

	return signed, nil
}

// Parse verifies the signature and expiry of a token and returns its claims.
func (s *jwtTokenService) Parse(tokenString string) (*service.TokenClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse session token")
	}
	if !token.Valid {
		return nil, errors.New("session token is not valid")
	}

	if claims.ID == "" {
		return nil, errors.New("session token has no id")
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "session token has an invalid subject")
	}

	result := &service.TokenClaims{
		TokenID:   claims.ID,
		AccountID: accountID,
		Role:      entity.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}

