package jwks_test

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/jwksguard/internal/jwks"
)

func TestToPEM_WrapsAt64AndFrames(t *testing.T) {
	body := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, 100)) // 136 chars
	out, err := jwks.ToPEM(jwks.Key{KID: "k1", X5c: []string{body, "ignored"}})
	require.NoError(t, err)

	s := out.String()
	require.True(t, strings.HasPrefix(s, "-----BEGIN CERTIFICATE-----\n"))
	require.True(t, strings.HasSuffix(s, "\n-----END CERTIFICATE-----\n"))

	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, body[:64], lines[1])
	assert.Equal(t, body[64:128], lines[2])
	assert.Equal(t, body[128:], lines[3])
}

func TestToPEM_Deterministic(t *testing.T) {
	k := jwks.Key{KID: "k1", X5c: []string{base64.StdEncoding.EncodeToString([]byte("certificate bytes"))}}
	a, err := jwks.ToPEM(k)
	require.NoError(t, err)
	b, err := jwks.ToPEM(k)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	block, _ := pem.Decode(a)
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE", block.Type)
	assert.Equal(t, []byte("certificate bytes"), block.Bytes)
}

func TestToPEM_Errors(t *testing.T) {
	cases := map[string]jwks.Key{
		"nil chain":   {KID: "k1"},
		"empty chain": {KID: "k1", X5c: []string{}},
		"empty entry": {KID: "k1", X5c: []string{""}},
		"bad base64":  {KID: "k1", X5c: []string{"not*base64"}},
	}
	for name, k := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jwks.ToPEM(k)
			assert.ErrorIs(t, err, jwks.ErrKeyFormat)
		})
	}
}

func TestPEMConverter(t *testing.T) {
	k := jwks.Key{KID: "k1", X5c: []string{base64.StdEncoding.EncodeToString([]byte("x"))}}
	want, _ := jwks.ToPEM(k)
	got, err := jwks.PEMConverter{}.Convert(k)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
