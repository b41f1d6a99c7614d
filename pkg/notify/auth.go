package notify

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const notificationKeyID = "marketsage-notification-key"

/*
SenderAuth signs outgoing push notifications with a process-local RSA key
pair. Receivers verify the bearer token against the JWKS document we
publish; the key never leaves the process and rotates on restart.
*/
type SenderAuth struct {
	issuer   string
	tokenTTL time.Duration
	key      *rsa.PrivateKey
}

/*
NewSenderAuth generates a fresh RSA-2048 key pair. An empty issuer falls
back to the host agent default; a non-positive ttl falls back to one hour.
*/
func NewSenderAuth(issuer string, tokenTTL time.Duration) (*SenderAuth, error) {
	if issuer == "" {
		issuer = "marketsage-host-agent"
	}

	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)

	if err != nil {
		return nil, fmt.Errorf("failed to generate notification key: %w", err)
	}

	return &SenderAuth{
		issuer:   issuer,
		tokenTTL: tokenTTL,
		key:      key,
	}, nil
}

/*
CreateToken mints a short-lived RS256 bearer token scoped to a single task.
*/
func (auth *SenderAuth) CreateToken(taskID string) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": auth.issuer,
		"sub": "task:" + taskID,
		"iat": now.Unix(),
		"exp": now.Add(auth.tokenTTL).Unix(),
		"jti": fmt.Sprintf("%s-%d", taskID, now.Unix()),
	})

	token.Header["kid"] = notificationKeyID

	return token.SignedString(auth.key)
}

/*
JWKS returns the public half of the signing key as a JSON Web Key Set
document, ready to be served at /.well-known/jwks.json.
*/
func (auth *SenderAuth) JWKS() map[string]any {
	public := &auth.key.PublicKey

	return map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": notificationKeyID,
				"n":   base64.RawURLEncoding.EncodeToString(public.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(public.E)).Bytes()),
			},
		},
	}
}

/*
PublicKey exposes the verification key, used by receivers in tests.
*/
func (auth *SenderAuth) PublicKey() *rsa.PublicKey {
	return &auth.key.PublicKey
}
