package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchKeyPlain(t *testing.T) {
	assert.True(t, MatchKey("s3cret", "s3cret"))
	assert.False(t, MatchKey("s3cret ", "s3cret"))
	assert.False(t, MatchKey("", "s3cret"))
	assert.False(t, MatchKey("", ""), "an unset key never matches")
	assert.False(t, MatchKey("anything", ""))
}

func TestMatchKeyBcrypt(t *testing.T) {
	hash, err := HashKey("s3cret")
	require.NoError(t, err)
	require.Len(t, hash, 60)

	assert.True(t, MatchKey("s3cret", hash))
	assert.False(t, MatchKey("wrong", hash))
	assert.False(t, MatchKey(hash, hash), "the hash itself is not the key")
}
