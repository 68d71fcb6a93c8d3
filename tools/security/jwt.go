package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"PPCommunity/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Options sets the signing key, algorithm and token lifetime.
type Options struct {
	Secret []byte        // HMAC secret
	Alg    string        // HS256/HS384/HS512 (default HS256)
	TTL    time.Duration // token lifetime (default 2h)
}

type JWTClaims struct {
	jwtlib.MapClaims
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// Generate signs a token whose subject is userID.
func Generate(opts Options, userID string) (token string, expireAt time.Time, err error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if userID == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}

	tok := jwtlib.NewWithClaims(method, claims)
	signed, err := tok.SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the signature and the time claims.
func Verify(opts Options, token string) (*JWTClaims, error) {
	if _, err := signingMethod(opts.Alg); err != nil {
		return nil, err
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("claims type mismatch")
	}
	return &JWTClaims{claims}, nil
}

// JWTVerifier maps a bearer token to the subject it was issued for.
type JWTVerifier struct {
	opts Options
}

func NewJWTVerifier(opts Options) *JWTVerifier {
	return &JWTVerifier{opts: opts}
}

// Verify returns the token's subject. Every failure (bad signature, expired,
// malformed, missing subject) is reported as errs.ErrTokenInvalid.
func (v *JWTVerifier) Verify(token string) (string, error) {
	claims, err := Verify(v.opts, token)
	if err != nil {
		return "", errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errs.ErrTokenInvalid.WrapMsg("missing subject")
	}
	return sub, nil
}

// Issue signs a token for userID with the verifier's options.
func (v *JWTVerifier) Issue(userID string) (string, time.Time, error) {
	return Generate(v.opts, userID)
}

// CheckAlg reports whether alg is a supported HMAC algorithm.
func CheckAlg(alg string) error {
	_, err := signingMethod(alg)
	return err
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
