// Package dialog implements the per-conversant submission and deletion dialog
// on top of the core session store.
//
// Callers serialize work for one conversant with Lock; individual transitions
// check the current state and then write it, so they are not atomic on their own.
package dialog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/gallerybot/core/telegram/state"
)

// Dialog states.
const (
	Idle                 = state.StateIdle
	AwaitingPhoto        = state.State("awaiting_photo")
	AwaitingCaption      = state.State("awaiting_caption")
	AwaitingDeletionCode = state.State("awaiting_deletion_code")
)

const photoRefKey = "photo_ref"

// ErrWrongState is returned when an operation is invoked outside the state it belongs to.
var ErrWrongState = errors.New("dialog: wrong state")

// Ready carries a photo and caption that are ready to be published.
type Ready struct {
	PhotoRef string
	Caption  string
}

// Machine drives dialog transitions for all conversants.
type Machine struct {
	sessions state.Manager
}

// New returns a Machine backed by sessions.
func New(sessions state.Manager) *Machine {
	if sessions == nil {
		sessions = state.NewMemoryManager()
	}
	return &Machine{sessions: sessions}
}

// Lock serializes event handling for one conversant.
func (m *Machine) Lock(id int64) (unlock func()) {
	return m.sessions.Lock(id)
}

// State returns the current dialog state; unknown conversants are Idle.
func (m *Machine) State(id int64) state.State {
	return m.sessions.Get(id).State
}

// PendingPhoto returns the stored photo reference while awaiting a caption.
func (m *Machine) PendingPhoto(id int64) (string, bool) {
	s := m.sessions.Get(id)
	if s.State != AwaitingCaption {
		return "", false
	}
	ref, ok := s.Data[photoRefKey]
	return ref, ok && ref != ""
}

// BeginSubmission moves an idle conversant to AwaitingPhoto.
func (m *Machine) BeginSubmission(id int64) error {
	return m.advance(id, Idle, AwaitingPhoto)
}

// BeginDeletion moves an idle conversant to AwaitingDeletionCode.
func (m *Machine) BeginDeletion(id int64) error {
	return m.advance(id, Idle, AwaitingDeletionCode)
}

// AttachPhoto accepts a photo while AwaitingPhoto. With a non-blank caption the
// submission is ready and returned; the state is left for Finish to reset.
// Without one the reference is stored and the conversant moves to AwaitingCaption,
// in which case the returned Ready is nil.
func (m *Machine) AttachPhoto(id int64, ref string, caption *string) (*Ready, error) {
	if cur := m.State(id); cur != AwaitingPhoto {
		return nil, wrongState("attach photo", cur)
	}
	if ref == "" {
		return nil, fmt.Errorf("dialog: attach photo: empty photo reference")
	}
	if caption != nil && strings.TrimSpace(*caption) != "" {
		return &Ready{PhotoRef: ref, Caption: *caption}, nil
	}
	m.sessions.Put(id, state.Session{State: AwaitingCaption, Data: map[string]string{photoRefKey: ref}})
	return nil, nil
}

// AttachCaption pairs caption with the stored photo while AwaitingCaption.
func (m *Machine) AttachCaption(id int64, caption string) (Ready, error) {
	if cur := m.State(id); cur != AwaitingCaption {
		return Ready{}, wrongState("attach caption", cur)
	}
	ref, ok := m.PendingPhoto(id)
	if !ok {
		return Ready{}, fmt.Errorf("dialog: attach caption: no stored photo: %w", ErrWrongState)
	}
	return Ready{PhotoRef: ref, Caption: caption}, nil
}

// Cancel resets an active dialog. It reports false, and does nothing, when already Idle.
func (m *Machine) Cancel(id int64) bool {
	if m.State(id) == Idle {
		return false
	}
	m.sessions.Clear(id)
	return true
}

// ResetOnInvalidInput forces Idle and drops any stored photo.
func (m *Machine) ResetOnInvalidInput(id int64) {
	m.sessions.Clear(id)
}

// Finish completes a publish or delete attempt and returns to Idle.
func (m *Machine) Finish(id int64) {
	m.sessions.Clear(id)
}

func (m *Machine) advance(id int64, from, to state.State) error {
	if cur := m.State(id); cur != from {
		return wrongState(fmt.Sprintf("%s -> %s", from, to), cur)
	}
	m.sessions.Put(id, state.Session{State: to})
	return nil
}

func wrongState(op string, cur state.State) error {
	return fmt.Errorf("dialog: %s in state %s: %w", op, cur, ErrWrongState)
}
