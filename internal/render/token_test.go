package render

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret-test-secret", time.Hour)

	token, err := codec.Generate("c1", "g1", "r1")
	require.NoError(t, err)

	info, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "c1", info.CampaignID)
	assert.Equal(t, "g1", info.GroupID)
	assert.Equal(t, "r1", info.RecipientID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	codec := NewTokenCodec("test-secret-test-secret", time.Hour)
	other := NewTokenCodec("another-secret-entirely", time.Hour)

	token, err := codec.Generate("c1", "g1", "r1")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenExpiryRejected(t *testing.T) {
	codec := NewTokenCodec("test-secret-test-secret", -time.Minute)

	token, err := codec.Generate("c1", "g1", "r1")
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.Error(t, err)
}

func TestTokenMissingClaimsRejected(t *testing.T) {
	secret := "test-secret-test-secret"
	codec := NewTokenCodec(secret, time.Hour)

	claims := jwt.MapClaims{"cid": "c1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.Error(t, err)
}
