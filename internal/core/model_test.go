package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRender(t *testing.T) {
	msg := ChatMessage{ID: "m1", Author: "alice", Text: "hello chat"}
	if got := Render(msg); got != "alice: hello chat" {
		t.Fatalf("expected %q, got %q", "alice: hello chat", got)
	}
}

func TestChatMessageJSONRoundTrip(t *testing.T) {
	msg := ChatMessage{
		ID:     "m1",
		Author: "alice",
		Text:   "hello",
		Ts:     time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ChatMessage
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != msg {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, msg)
	}
}
