// Package audio plays decoded speech audio on the default output device.
package audio

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"
)

// Player decodes MP3 payloads and plays them to completion. The underlying
// device context is created lazily on first use and reused; oto supports a
// single context per process, so the sample rate is pinned by the first
// stream played.
type Player struct {
	mu         sync.Mutex
	context    *oto.Context
	sampleRate int
}

// NewPlayer returns a player with no device claimed yet.
func NewPlayer() *Player {
	return &Player{}
}

// PlayMP3 decodes data and blocks until the device reports the stream
// drained. The return is the true end-of-playback signal, not an estimate.
func (p *Player) PlayMP3(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return errors.New("audio: empty payload")
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "audio: decode mp3")
	}

	// Decode fully up front; the PCM buffer must stay alive for the whole
	// playback or the device reads freed memory.
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return errors.Wrap(err, "audio: read pcm stream")
	}
	if len(pcm) == 0 {
		return errors.New("audio: decoded stream is empty")
	}

	octx, err := p.contextFor(dec.SampleRate())
	if err != nil {
		return err
	}

	player := octx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}

func (p *Player) contextFor(sampleRate int) (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.context != nil {
		if p.sampleRate != sampleRate {
			return nil, errors.Errorf("audio: device pinned at %d Hz, stream is %d Hz", p.sampleRate, sampleRate)
		}
		return p.context, nil
	}

	octx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2, // go-mp3 always emits 16-bit stereo
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, errors.Wrap(err, "audio: open output device")
	}
	<-ready

	p.context = octx
	p.sampleRate = sampleRate
	return octx, nil
}
