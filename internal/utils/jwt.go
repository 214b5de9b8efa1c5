package utils // package utils provides helpers for token issuance and verification

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived and carried in the Authorization header on
// protected endpoints. Expiry is the only invalidation mechanism; there is
// no revocation list.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims are the verified contents of an access token.
type Claims struct {
	Subject string // user id
	Role    string // canonical upper-case role name
}

// ErrMissingSubject is returned when a token is requested without a subject.
var ErrMissingSubject = errors.New("token subject is required")

// NewAccessToken builds and signs an HS256 JWT for a user. The role is
// normalized to upper case before it is embedded so the authorization gate
// can compare it against a fixed set. Issuance fails when the subject is
// empty; a token without an identity is useless to every consumer.
func NewAccessToken(secret, userID, role string, ttlMin int) (AccessToken, error) {
	if strings.TrimSpace(userID) == "" {
		return AccessToken{}, ErrMissingSubject
	}
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": strings.ToUpper(strings.TrimSpace(role)),
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of a serialized token
// and returns its claims. Expired tokens surface jwt.ErrTokenExpired via
// errors.Is; anything else (garbage input, wrong algorithm, bad signature)
// comes back as the library's parse error.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, err
	}
	if !tok.Valid {
		return Claims{}, jwt.ErrTokenUnverifiable
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	sub, _ := mc["sub"].(string)
	role, _ := mc["role"].(string)
	if sub == "" {
		return Claims{}, jwt.ErrTokenInvalidSubject
	}
	return Claims{Subject: sub, Role: role}, nil
}
