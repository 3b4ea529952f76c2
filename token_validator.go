package handoff

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenDecoder extracts identity claims from a bearer token without
// tying callers to a particular trust model.
type TokenDecoder interface {
	Decode(raw string) (*IdentityClaims, error)
}

// TokenDecoderFunc adapts a function into a TokenDecoder.
type TokenDecoderFunc func(raw string) (*IdentityClaims, error)

// Decode satisfies the TokenDecoder interface.
func (f TokenDecoderFunc) Decode(raw string) (*IdentityClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(raw)
}

// UnverifiedDecoder parses the token shape without checking its
// signature or issuer. This mirrors the handoff contract with the
// primary application: the token is trusted material, not verified
// credential. Production deployments should prefer JWKSDecoder.
type UnverifiedDecoder struct {
	parser *jwt.Parser
	logger Logger
}

// NewUnverifiedDecoder creates a decoder that only checks token shape.
func NewUnverifiedDecoder(logger Logger) *UnverifiedDecoder {
	if logger == nil {
		logger = defLogger{}
	}
	return &UnverifiedDecoder{
		parser: jwt.NewParser(),
		logger: logger,
	}
}

// Decode implements TokenDecoder.
func (d *UnverifiedDecoder) Decode(raw string) (*IdentityClaims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}

	token, _, err := d.parser.ParseUnverified(raw, &IdentityClaims{})
	if err != nil {
		d.logger.Error("token decode failed: %v", err)
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || claims == nil {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// JWKSDecoder validates signatures against the primary application's
// published key set before extracting claims.
type JWKSDecoder struct {
	jwks   *keyfunc.JWKS
	logger Logger
}

// NewJWKSDecoder fetches the JWK Set from the given URL and keeps it
// refreshed in the background.
func NewJWKSDecoder(jwksURL string, logger Logger) (*JWKSDecoder, error) {
	if logger == nil {
		logger = defLogger{}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: 5 * time.Minute,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh error: %v", err)
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to fetch JWK Set").
			WithMetadata(map[string]any{"url": jwksURL})
	}

	return &JWKSDecoder{jwks: jwks, logger: logger}, nil
}

// Decode implements TokenDecoder.
func (d *JWKSDecoder) Decode(raw string) (*IdentityClaims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(raw, &IdentityClaims{}, d.jwks.Keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		d.logger.Error("token verification failed: %v", err)
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// MultiDecoder tries decoders in order until one succeeds. It treats
// malformed-token errors as "try next" and returns the last one if
// every decoder fails.
type MultiDecoder struct {
	decoders []TokenDecoder
}

// NewMultiDecoder filters nil decoders and returns a composite decoder.
func NewMultiDecoder(decoders ...TokenDecoder) *MultiDecoder {
	filtered := make([]TokenDecoder, 0, len(decoders))
	for _, d := range decoders {
		if d != nil {
			filtered = append(filtered, d)
		}
	}
	return &MultiDecoder{decoders: filtered}
}

// Decode satisfies the TokenDecoder interface.
func (m *MultiDecoder) Decode(raw string) (*IdentityClaims, error) {
	var lastErr error
	for _, d := range m.decoders {
		claims, err := d.Decode(raw)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}
