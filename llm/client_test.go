// ABOUTME: Tests for the scripted test client.

package llm

import (
	"context"
	"errors"
	"testing"
)

func TestScriptRepliesInOrder(t *testing.T) {
	s := (&Script{}).Reply("first", "second")

	r1, err := s.Complete(context.Background(), Request{User: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r1.Text != "first" {
		t.Errorf("got %q, want first", r1.Text)
	}

	r2, _ := s.Complete(context.Background(), Request{User: "b"})
	if r2.Text != "second" {
		t.Errorf("got %q, want second", r2.Text)
	}

	if len(s.Requests) != 2 || s.Requests[1].User != "b" {
		t.Errorf("requests not recorded: %+v", s.Requests)
	}
}

func TestScriptFailAndExhaustion(t *testing.T) {
	boom := errors.New("boom")
	s := (&Script{}).Fail(boom)

	if _, err := s.Complete(context.Background(), Request{}); !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
	if _, err := s.Complete(context.Background(), Request{}); !errors.Is(err, ErrScriptExhausted) {
		t.Errorf("got %v, want ErrScriptExhausted", err)
	}
}
