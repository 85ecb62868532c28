package services

import (
	"context"
	"errors"
	"sync"
)

type fakeOCR struct {
	mu    sync.Mutex
	text  string
	err   error
	byLen map[int]error
	calls int
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.byLen[len(data)]; ok {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeGemini replays responses in order and records prompts.
type fakeGemini struct {
	mu        sync.Mutex
	responses []fakeReply
	prompts   []string
}

type fakeReply struct {
	text string
	err  error
}

func (f *fakeGemini) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r.text, r.err
}

func (f *fakeGemini) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
