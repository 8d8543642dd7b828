// ABOUTME: Local file track source
// ABOUTME: Picks a streaming decoder by file extension
package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cris-/squeezeos-squeezeplay/pkg/audio/decode"
)

// FileTrack plays a local audio file through a streaming decoder.
type FileTrack struct {
	file    *os.File
	decoder decode.Decoder
}

// OpenFile opens path and selects a decoder from its extension.
func OpenFile(path string) (*FileTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track: %w", err)
	}

	dec, err := decode.New(filepath.Ext(path), f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open decoder for %s: %w", filepath.Base(path), err)
	}

	return &FileTrack{file: f, decoder: dec}, nil
}

// SampleRate is the file's native rate.
func (t *FileTrack) SampleRate() int {
	return t.decoder.SampleRate()
}

// ReadFrames pulls decoded frames from the file.
func (t *FileTrack) ReadFrames(dst []int32) (int, error) {
	return t.decoder.ReadFrames(dst)
}

// Close closes the decoder and the underlying file.
func (t *FileTrack) Close() error {
	if err := t.decoder.Close(); err != nil {
		t.file.Close()
		return err
	}
	return t.file.Close()
}
