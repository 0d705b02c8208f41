package reference

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrPartNotFound = errors.New("reference: part not found")
	ErrPartConsumed = errors.New("reference: part already consumed")
	ErrPartExists   = errors.New("reference: part already present")
)

// Part is one side-channel payload.
type Part struct {
	ID      string
	Payload string
}

// Parts is the side-channel table of one message. Each entry can be taken
// exactly once.
type Parts struct {
	mu       sync.Mutex
	order    []string
	payloads map[string]string
	consumed map[string]bool
}

func NewParts() *Parts {
	return &Parts{payloads: make(map[string]string), consumed: make(map[string]bool)}
}

// PartsFrom loads parts from a decoded envelope. Ids are taken in sorted
// order so iteration is deterministic.
func PartsFrom(m map[string]string) *Parts {
	p := NewParts()
	for _, id := range sortedIDs(m) {
		_ = p.Put(id, m[id])
	}
	return p
}

// Put adds a payload under id.
func (p *Parts) Put(id, payload string) error {
	if id == "" {
		return errors.New("reference: empty part id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.payloads[id]; ok || p.consumed[id] {
		return fmt.Errorf("%w: %s", ErrPartExists, id)
	}
	p.payloads[id] = payload
	p.order = append(p.order, id)
	return nil
}

// Take removes and returns the payload for id.
func (p *Parts) Take(id string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: %s", ErrPartNotFound, id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	payload, ok := p.payloads[id]
	if !ok {
		if p.consumed[id] {
			return "", fmt.Errorf("%w: %s", ErrPartConsumed, id)
		}
		return "", fmt.Errorf("%w: %s", ErrPartNotFound, id)
	}
	delete(p.payloads, id)
	p.consumed[id] = true
	return payload, nil
}

// Len counts the parts not yet taken.
func (p *Parts) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

// Remaining returns the parts not yet taken, in insertion order.
func (p *Parts) Remaining() []Part {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Part, 0, len(p.payloads))
	for _, id := range p.order {
		if payload, ok := p.payloads[id]; ok {
			out = append(out, Part{ID: id, Payload: payload})
		}
	}
	return out
}

func sortedIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
