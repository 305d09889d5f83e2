package events

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body, err := Encode(TypeSlowPlayer, SlowPlayer{SessionId: 1, UserId: 2, Round: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != TypeSlowPlayer {
		t.Fatalf("type = %q, want %q", env.Type, TypeSlowPlayer)
	}

	var payload SlowPlayer
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.SessionId != 1 || payload.UserId != 2 || payload.Round != 3 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestDecodeInvalidBody(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected decode error for malformed body")
	}
}

func TestEncodePreservesWordThroughPollLifecycle(t *testing.T) {
	body, err := Encode(TypeSendPoll, SendPoll{
		ChatId: 5, SessionId: 6, Question: "Shall we accept?",
		Anonymous: true, OpenPeriod: 20, Word: "слон",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var payload SendPoll
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Word != "слон" {
		t.Errorf("word = %q, want слон", payload.Word)
	}
}
