package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	d := SumSHA256([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01", d.Short())
	assert.Equal(t, d, SumSHA256([]byte("abc")))
	assert.NotEqual(t, d, SumSHA256([]byte("abd")))
}
