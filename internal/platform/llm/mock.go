package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// Scripted is one canned Mock answer. Block waits for ctx to finish instead of
// answering
type Scripted struct {
	Content string
	Err     error
	Block   bool
}

// Mock replays scripted answers in order and records every prompt. An empty
// script answers with UnavailableError
type Mock struct {
	mu     sync.Mutex
	script []Scripted
	calls  []Prompt
}

// NewMock returns a Mock loaded with script
func NewMock(script ...Scripted) *Mock { return &Mock{script: script} }

func (m *Mock) Name() string  { return ProviderMock }
func (m *Mock) Model() string { return "mock" }

// Push appends answers to the script
func (m *Mock) Push(s ...Scripted) {
	m.mu.Lock()
	m.script = append(m.script, s...)
	m.mu.Unlock()
}

// Calls returns a copy of the prompts seen so far
func (m *Mock) Calls() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.calls...)
}

func (m *Mock) Complete(ctx context.Context, p Prompt) (*Reply, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p)
	if len(m.script) == 0 {
		m.mu.Unlock()
		return nil, &UnavailableError{}
	}
	next := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()

	if next.Block {
		<-ctx.Done()
		return nil, &UnavailableError{Err: ctx.Err()}
	}
	if next.Err != nil {
		return nil, next.Err
	}
	content := json.RawMessage(next.Content)
	if err := validate(p.Schema, content); err != nil {
		return nil, err
	}
	return &Reply{Content: content, Model: "mock", Stop: "end"}, nil
}

// Disabled is the "none" provider
type Disabled struct{}

func (Disabled) Name() string  { return ProviderNone }
func (Disabled) Model() string { return "" }

func (Disabled) Complete(context.Context, Prompt) (*Reply, error) { return nil, ErrDisabled }
