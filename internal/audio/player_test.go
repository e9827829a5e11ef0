package audio

import (
	"context"
	"testing"
)

// Playback itself needs a real output device; these cover the paths that
// must fail before the device is ever claimed.

func TestPlayMP3EmptyPayload(t *testing.T) {
	p := NewPlayer()
	if err := p.PlayMP3(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if p.context != nil {
		t.Fatal("device must not be claimed for an empty payload")
	}
}

func TestPlayMP3InvalidData(t *testing.T) {
	p := NewPlayer()
	if err := p.PlayMP3(context.Background(), []byte("not an mp3 stream")); err == nil {
		t.Fatal("expected decode error for garbage input")
	}
	if p.context != nil {
		t.Fatal("device must not be claimed when decoding fails")
	}
}
