package intent

import (
	"strings"
	"testing"
)

func TestLooksLikeSmallTalk(t *testing.T) {
	small := []string{
		"thanks", "Thank you", "thx", "ok thanks", "hi", "HELLO", "hey",
		"good morning", "ok", "okay", "k", "sure", "got it", "yeah", "nope",
		"thanks a lot", "really appreciate it",
	}
	for _, q := range small {
		if !looksLikeSmallTalk(q) {
			t.Errorf("%q should be small talk", q)
		}
	}

	real := []string{
		"", "weather in Tokyo", "how do goroutines work", "okey",
		"thanks for nothing tell me about quantum computing and also the weather in berlin please",
		strings.Repeat("hi ", 40),
	}
	for _, q := range real {
		if looksLikeSmallTalk(q) {
			t.Errorf("%q should not be small talk", q)
		}
	}
}

func TestSmallTalkReply(t *testing.T) {
	if got := smallTalkReply("thanks"); got != "You're welcome! Anything else you want to do?" {
		t.Errorf("gratitude reply = %q", got)
	}
	if got := smallTalkReply("who are you"); got != "I'm Cloudy, your AI assistant. What can I help you with?" {
		t.Errorf("identity reply = %q", got)
	}
	if got := smallTalkReply("hello"); got != "Hi! What can I help you with?" {
		t.Errorf("greeting reply = %q", got)
	}
}
