package token_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/jwksguard/internal/jwks/jwkstest"
	"github.com/dropDatabas3/jwksguard/internal/token"
)

func seg(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func TestDecode_Valid(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	raw := s.Sign(t, jwkstest.Claims("auth0|abc"))

	d, err := token.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "RS256", d.Header.Alg)
	assert.Equal(t, "k1", d.Header.Kid)
	assert.Equal(t, "JWT", d.Header.Typ)

	sub, ok := d.StringClaim("sub")
	require.True(t, ok)
	assert.Equal(t, "auth0|abc", sub)

	_, ok = d.StringClaim("email")
	assert.False(t, ok)
}

func TestDecode_DoesNotCheckSignature(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	raw := s.Sign(t, jwkstest.Claims("u"))
	tampered := raw[:len(raw)-4] + "AAAA"

	_, err := token.Decode(tampered)
	assert.NoError(t, err)
}

func TestDecode_Malformed(t *testing.T) {
	header := seg(`{"alg":"RS256","kid":"k1"}`)
	cases := map[string]string{
		"empty":           "",
		"one segment":     "abc",
		"two segments":    header + "." + seg(`{"sub":"x"}`),
		"four segments":   header + "." + seg(`{}`) + ".sig.extra",
		"bad header b64":  "!!!." + seg(`{}`) + ".sig",
		"header not json": seg("nope") + "." + seg(`{}`) + ".sig",
		"payload not obj": header + "." + seg(`[1,2]`) + ".sig",
		"null payload":    header + "." + seg(`null`) + ".sig",
		"null header":     seg(`null`) + "." + seg(`{}`) + ".sig",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := token.Decode(raw)
			assert.ErrorIs(t, err, token.ErrMalformed)
		})
	}
}

func TestDecode_UnusableAlgIsNotMalformed(t *testing.T) {
	payload := seg(`{"sub":"auth0|abc"}`)
	cases := map[string]string{
		"missing alg": seg(`{"kid":"k1"}`),
		"unknown alg": seg(`{"alg":"XX999","kid":"k1"}`),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			raw := header + "." + payload + "." + seg("sig")

			d, err := token.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, "k1", d.Header.Kid)
			sub, ok := d.StringClaim("sub")
			require.True(t, ok)
			assert.Equal(t, "auth0|abc", sub)

			s := jwkstest.NewRSA(t, "k1")
			err = token.NewVerifier(token.Options{}).Verify(context.Background(), raw, pemOf(t, s))
			assert.ErrorIs(t, err, token.ErrSignatureInvalid)
		})
	}
}
