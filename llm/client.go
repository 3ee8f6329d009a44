// ABOUTME: Minimal chat-completion client interface shared by all agents.
// ABOUTME: Includes a scripted in-memory client for tests.

package llm

import (
	"context"
	"errors"
	"sync"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	User        string
	Temperature *float64
	MaxTokens   int
}

// Response is the completion result.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client completes a request against some model backend.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ErrScriptExhausted is returned when a Script runs out of queued replies.
var ErrScriptExhausted = errors.New("llm: script exhausted")

// Script is a Client fed from a queue of canned replies. Queue an error to
// make the corresponding call fail.
type Script struct {
	mu      sync.Mutex
	replies []scriptReply
	// Requests records every request in order for assertions.
	Requests []Request
}

type scriptReply struct {
	text string
	err  error
}

// Reply queues one or more successful replies.
func (s *Script) Reply(texts ...string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range texts {
		s.replies = append(s.replies, scriptReply{text: t})
	}
	return s
}

// Fail queues a failing reply.
func (s *Script) Fail(err error) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, scriptReply{err: err})
	return s
}

// Complete pops the next queued reply.
func (s *Script) Complete(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if len(s.replies) == 0 {
		return Response{}, ErrScriptExhausted
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return Response{}, r.err
	}
	return Response{Text: r.text, Model: "script"}, nil
}

var _ Client = (*Script)(nil)
