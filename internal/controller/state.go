// Package controller holds the per-page view state machines. Each page
// moves Unauthenticated → Loading → Ready, and within Ready toggles between
// Viewing and Editing exactly one record. Controllers never touch the UI;
// they expose state for whatever renders it.
package controller

import (
	"errors"
	"sync"
)

type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseLoading:
		return "loading"
	default:
		return "ready"
	}
}

// ErrPending is returned when a mutation is submitted while another is in
// flight. Submit controls are disabled during pending mutations; this is the
// backstop for callers that race past that.
var ErrPending = errors.New("mutation already in flight")

// ErrNotEditing is returned when Save is invoked with no record in edit mode.
var ErrNotEditing = errors.New("no record is being edited")

// InvalidInputError rejects values outside the closed enum sets before they
// reach the store.
type InvalidInputError struct {
	Field string
	Value string
}

func (e *InvalidInputError) Error() string {
	return "invalid " + e.Field + ": " + e.Value
}

// Confirmer gates destructive actions behind an explicit yes/no prompt.
// Declining leaves all state unchanged.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a plain function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// page is the state shared by every controller: phase, the at-most-one
// editing record, the pending-mutation latch and the stale-update guard.
type page struct {
	mu         sync.Mutex
	phase      Phase
	editingID  string
	pending    bool
	generation int
	lastErr    error
}

// beginLoad moves the page to Loading and returns a generation token.
// Results are applied only while the token is current; Close and scope
// changes bump the generation so late fetches never overwrite fresh state.
func (p *page) beginLoad() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.phase = PhaseLoading
	return p.generation
}

// tryBeginMutation flips the pending latch; false means another mutation is
// still in flight.
func (p *page) tryBeginMutation() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending {
		return false
	}
	p.pending = true
	return true
}

// endMutation always clears the latch, success or failure, so the page is
// never left permanently disabled.
func (p *page) endMutation() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = false
}

// StartEdit moves Viewing → Editing(id). Only one record is editable at a
// time; editing a second record replaces the first.
func (p *page) StartEdit(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseReady {
		return
	}
	p.editingID = id
}

// CancelEdit returns to Viewing without saving.
func (p *page) CancelEdit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editingID = ""
}

func (p *page) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

func (p *page) EditingID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.editingID
}

func (p *page) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

func (p *page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// invalidate bumps the generation so in-flight fetches are discarded.
func (p *page) invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
}
