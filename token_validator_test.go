package handoff_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmhaka/handoff"
)

func TestUnverifiedDecoder(t *testing.T) {
	decoder := handoff.NewUnverifiedDecoder(nil)

	t.Run("empty token", func(t *testing.T) {
		_, err := decoder.Decode("")
		assert.ErrorIs(t, err, handoff.ErrTokenMissing)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := decoder.Decode("not-a-jwt")
		require.Error(t, err)
		assert.True(t, handoff.IsMalformedError(err))
	})

	t.Run("signature is not checked", func(t *testing.T) {
		// Signed with a key this decoder never sees.
		raw := signIdentityToken(t, &handoff.IdentityClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"},
			Email:            "alice@x.com",
		})

		claims, err := decoder.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "abc", claims.SubjectID())
		assert.Equal(t, "alice@x.com", claims.Email)
	})
}

func TestTokenDecoderFunc(t *testing.T) {
	t.Run("nil func is malformed", func(t *testing.T) {
		var f handoff.TokenDecoderFunc
		_, err := f.Decode("whatever")
		assert.ErrorIs(t, err, handoff.ErrTokenMalformed)
	})

	t.Run("delegates", func(t *testing.T) {
		f := handoff.TokenDecoderFunc(func(raw string) (*handoff.IdentityClaims, error) {
			return &handoff.IdentityClaims{Email: raw}, nil
		})

		claims, err := f.Decode("alice@x.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@x.com", claims.Email)
	})
}

func TestMultiDecoder(t *testing.T) {
	malformed := handoff.TokenDecoderFunc(func(string) (*handoff.IdentityClaims, error) {
		return nil, handoff.ErrTokenMalformed
	})
	succeeding := handoff.TokenDecoderFunc(func(string) (*handoff.IdentityClaims, error) {
		return &handoff.IdentityClaims{Email: "alice@x.com"}, nil
	})
	expired := handoff.TokenDecoderFunc(func(string) (*handoff.IdentityClaims, error) {
		return nil, handoff.ErrTokenExpired
	})

	t.Run("falls through malformed errors", func(t *testing.T) {
		decoder := handoff.NewMultiDecoder(malformed, succeeding)

		claims, err := decoder.Decode("token")
		require.NoError(t, err)
		assert.Equal(t, "alice@x.com", claims.Email)
	})

	t.Run("non-malformed errors stop the chain", func(t *testing.T) {
		decoder := handoff.NewMultiDecoder(expired, succeeding)

		_, err := decoder.Decode("token")
		assert.ErrorIs(t, err, handoff.ErrTokenExpired)
	})

	t.Run("every decoder malformed returns the last error", func(t *testing.T) {
		decoder := handoff.NewMultiDecoder(malformed, malformed)

		_, err := decoder.Decode("token")
		assert.True(t, handoff.IsMalformedError(err))
	})

	t.Run("nil decoders are skipped", func(t *testing.T) {
		decoder := handoff.NewMultiDecoder(nil, succeeding)

		claims, err := decoder.Decode("token")
		require.NoError(t, err)
		assert.Equal(t, "alice@x.com", claims.Email)
	})

	t.Run("empty decoder set", func(t *testing.T) {
		decoder := handoff.NewMultiDecoder()

		_, err := decoder.Decode("token")
		assert.ErrorIs(t, err, handoff.ErrTokenMalformed)
	})
}
