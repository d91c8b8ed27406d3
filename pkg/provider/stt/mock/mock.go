// Package mock provides a test double for the stt.Transcriber interface.
//
// Script the texts to return, then inspect Calls to verify what audio was
// delivered:
//
//	tr := &mock.Transcriber{Texts: []string{"she sells seashells"}}
//	res, err := tr.Transcribe(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/twistvox/twistvox/pkg/provider/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber is a scripted implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Texts are returned in order, one per call. Calls beyond the script
	// return the last entry; an empty script returns empty text.
	Texts []string

	// Err, if non-nil, is returned by every call.
	Err error

	// Calls records every request, in order.
	Calls []stt.Request

	next int
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(_ context.Context, req stt.Request) (stt.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Calls = append(t.Calls, req)
	if t.Err != nil {
		return stt.Result{}, t.Err
	}
	if len(t.Texts) == 0 {
		return stt.Result{}, nil
	}
	idx := t.next
	if idx >= len(t.Texts) {
		idx = len(t.Texts) - 1
	}
	t.next++
	return stt.Result{Text: t.Texts[idx]}, nil
}

// CallCount returns how many times Transcribe was invoked.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
