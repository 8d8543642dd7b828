// ABOUTME: Tests for MP3 streaming decoder
// ABOUTME: Covers stream validation on malformed input
package decode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMP3InvalidStream(t *testing.T) {
	dec, err := NewMP3(bytes.NewReader([]byte("not an mp3 stream")))
	assert.Error(t, err)
	assert.Nil(t, dec)
}

func TestNewMP3EmptyStream(t *testing.T) {
	dec, err := NewMP3(bytes.NewReader(nil))
	assert.Error(t, err)
	assert.Nil(t, dec)
}
