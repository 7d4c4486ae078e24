package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultAccessTokenTTL = 24 * time.Hour

// JWTTokenGenerator signs access tokens with HS256, or RS256 when a key pair
// is set.
type JWTTokenGenerator struct {
	secret     []byte
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &JWTTokenGenerator{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func NewRSATokenGenerator(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, ttl time.Duration) *JWTTokenGenerator {
	g := NewJWTTokenGenerator("", ttl)
	g.privateKey = privateKey
	g.publicKey = publicKey
	return g
}

// NewTokenGeneratorFromConfig picks RS256 when both keys are configured.
func NewTokenGeneratorFromConfig(cfg internal.SecurityConfig) (*JWTTokenGenerator, error) {
	var g *JWTTokenGenerator
	if cfg.UsesRSA() {
		priv, err := cfg.GetPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("load jwt private key: %w", err)
		}
		pub, err := cfg.GetPublicKey()
		if err != nil {
			return nil, fmt.Errorf("load jwt public key: %w", err)
		}
		g = NewRSATokenGenerator(priv, pub, cfg.AccessTokenDuration)
	} else {
		g = NewJWTTokenGenerator(cfg.JWTSecret, cfg.AccessTokenDuration)
	}
	g.issuer = cfg.JWTIssuer
	return g, nil
}

func (j *JWTTokenGenerator) WithClock(now func() time.Time) *JWTTokenGenerator {
	j.now = now
	return j
}

func (j *JWTTokenGenerator) method() jwt.SigningMethod {
	if j.privateKey != nil {
		return jwt.SigningMethodRS256
	}
	return jwt.SigningMethodHS256
}

func (j *JWTTokenGenerator) GenerateAccessToken(u *coreUser.User) (string, *Claims, error) {
	issuedAt := j.now()
	claims := &Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(j.method(), claims)
	var (
		signed string
		err    error
	)
	if j.privateKey != nil {
		signed, err = token.SignedString(j.privateKey)
	} else {
		signed, err = token.SignedString(j.secret)
	}
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken verifies signature, algorithm and expiry, and requires the
// subject, role and token id claims.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if j.publicKey != nil {
			return j.publicKey, nil
		}
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
