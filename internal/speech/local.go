package speech

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	waitPerChar = 100 * time.Millisecond
	minWait     = 2000 * time.Millisecond
)

// LocalVoice speaks through the operating system's voice synthesizer. The
// synthesizer handle is an opaque OS resource; playback length is not
// observable, so the engine waits an estimate derived from the text length
// before considering the output device free. The estimate under- and
// over-shoots real playback; that behavior is intentional.
type LocalVoice struct {
	voice string // resolved voice name; empty means system default
}

// NewLocalVoice enumerates installed voices and selects one by substring
// match. An empty name selects the system default; a name with no match is
// ErrVoiceNotFound, surfaced at configuration time rather than at speak
// time.
func NewLocalVoice(voiceName string) (*LocalVoice, error) {
	voiceName = strings.TrimSpace(voiceName)
	if voiceName == "" {
		return &LocalVoice{}, nil
	}

	names, err := listVoices()
	if err != nil {
		return nil, errors.Wrap(err, "speech: enumerate system voices")
	}
	match, ok := matchVoice(names, voiceName)
	if !ok {
		return nil, errors.Wrapf(ErrVoiceNotFound, "%q not among %d installed voices", voiceName, len(names))
	}
	slog.Info("speech: selected local voice", "voice", match)
	return &LocalVoice{voice: match}, nil
}

// Name identifies the engine in logs and the status API.
func (e *LocalVoice) Name() string { return "local-voice" }

// Utter starts synthesis in the background and waits the estimated playback
// duration. The synthesizer process is not joined for completion; the
// estimate is the completion signal.
func (e *LocalVoice) Utter(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cmd := synthesisCommand(ctx, e.voice, text)
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "speech: start synthesizer")
	}
	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			slog.Debug("speech: synthesizer exited", "err", err)
		}
	}()

	wait := EstimateDuration(text)
	slog.Debug("speech: waiting estimated playback", "wait", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EstimateDuration models playback length as ~100ms per character with a
// 2000ms floor. It is an approximation, not measured audio length.
func EstimateDuration(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * waitPerChar
	if d < minWait {
		d = minWait
	}
	return d
}

// matchVoice returns the first installed voice containing want.
func matchVoice(names []string, want string) (string, bool) {
	for _, name := range names {
		if strings.Contains(name, want) {
			return name, true
		}
	}
	return "", false
}

func listVoices() ([]string, error) {
	switch runtime.GOOS {
	case "darwin":
		out, err := exec.Command("say", "-v", "?").Output()
		if err != nil {
			return nil, err
		}
		return parseSayVoices(string(out)), nil
	default:
		out, err := exec.Command("espeak-ng", "--voices").Output()
		if err != nil {
			return nil, err
		}
		return parseEspeakVoices(string(out)), nil
	}
}

// parseSayVoices reads `say -v ?` output: voice name, run of spaces,
// language code, comment.
func parseSayVoices(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, "  ")
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseEspeakVoices reads `espeak-ng --voices` output: the voice name is
// the fourth column; the first line is a header.
func parseEspeakVoices(out string) []string {
	var names []string
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		names = append(names, fields[3])
	}
	return names
}

func synthesisCommand(ctx context.Context, voice, text string) *exec.Cmd {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "say"
	default:
		name = "espeak-ng"
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, text)
	return exec.CommandContext(ctx, name, args...)
}
