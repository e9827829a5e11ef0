package speech

import (
	"testing"
	"time"
)

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		text string
		want time.Duration
	}{
		{"", 2000 * time.Millisecond},
		{"hi", 2000 * time.Millisecond},
		{"exactly twenty chars", 2000 * time.Millisecond},
		{"this sentence has thirty chars", 3000 * time.Millisecond},
		{"héllo wörld héllo wörld ag", 2600 * time.Millisecond}, // runes, not bytes
	}
	for _, tc := range cases {
		if got := EstimateDuration(tc.text); got != tc.want {
			t.Fatalf("EstimateDuration(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestMatchVoice(t *testing.T) {
	names := []string{"Alex", "Daniel", "Samantha", "Victoria"}

	got, ok := matchVoice(names, "man")
	if !ok || got != "Samantha" {
		t.Fatalf("expected Samantha, got %q (ok=%t)", got, ok)
	}
	if _, ok := matchVoice(names, "Zelda"); ok {
		t.Fatal("expected no match for Zelda")
	}
}

func TestParseSayVoices(t *testing.T) {
	out := "Alex                en_US    # Most people recognize me by my voice.\n" +
		"Samantha            en_US    # Hello, my name is Samantha.\n" +
		"Yuna                ko_KR    # 안녕하세요.\n"
	names := parseSayVoices(out)
	want := []string{"Alex", "Samantha", "Yuna"}
	if len(names) != len(want) {
		t.Fatalf("expected %d voices, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected voice %q at %d, got %q", want[i], i, names[i])
		}
	}
}

func TestParseEspeakVoices(t *testing.T) {
	out := "Pty Language       Age/Gender VoiceName          File                 Other Languages\n" +
		" 5  af              --/M      Afrikaans          gmw/af               \n" +
		" 5  en-gb           --/M      English_(Great_Britain) gmw/en               (en 2)\n" +
		"garbage line\n"
	names := parseEspeakVoices(out)
	want := []string{"Afrikaans", "English_(Great_Britain)"}
	if len(names) != len(want) {
		t.Fatalf("expected %d voices, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected voice %q at %d, got %q", want[i], i, names[i])
		}
	}
}

func TestNewLocalVoiceDefault(t *testing.T) {
	// the system default requires no enumeration, so this must succeed even
	// on machines with no synthesizer installed
	e, err := NewLocalVoice("")
	if err != nil {
		t.Fatalf("NewLocalVoice: %v", err)
	}
	if e.voice != "" {
		t.Fatalf("expected empty voice, got %q", e.voice)
	}
	if e.Name() != "local-voice" {
		t.Fatalf("unexpected engine name %q", e.Name())
	}
}
