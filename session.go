package vial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
)

// Mode is the edit session state.
type Mode int

const (
	// ModeNew means the draft becomes a new record on save.
	ModeNew Mode = iota
	// ModeEditing means the draft replaces the fields of EditingID on save.
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeEditing:
		return "editing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Op names the store operation an Outcome reports on.
type Op string

// Session operations.
const (
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpDuplicate Op = "duplicate"
)

// Outcome reports the result of a session operation. Store failures never
// escape the session as errors; they come back as a failed Outcome.
type Outcome struct {
	Op Op `json:"op"`
	// ID is the record the operation targeted or created. It is informational:
	// the ledger only reflects the change once the store streams it.
	ID       id.ShotID   `json:"id"`
	SourceID id.ShotID   `json:"source_id"`
	Fields   shot.Fields `json:"fields"`
	Message  string      `json:"message"`
	Err      error       `json:"-"`
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// User-visible outcome messages.
const (
	MsgShotRegistered  = "Shot registered"
	MsgShotUpdated     = "Shot updated"
	MsgShotDeleted     = "Shot deleted"
	MsgShotDuplicated  = "Shot duplicated"
	MsgSaveFailed      = "Failed to save entry"
	MsgDeleteFailed    = "Failed to delete entry"
	MsgCapacityBlocked = "Not enough insulin remaining for another shot"
	MsgInvalidRecord   = "Invalid entry"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	// Clock supplies "today" for new drafts and duplicates.
	Clock func() time.Time
	// Defaults seeds brand, type, location and amounts of new drafts. Its
	// Date is ignored.
	Defaults shot.Fields
	// Sticky makes a successful create carry its fields, except the date,
	// into the next draft.
	Sticky bool
}

// Session holds the draft being edited. It never holds its lock across a
// store call, so snapshot reconciliation may run from inside one.
type Session struct {
	store  shot.Store
	ledger *Ledger
	clock  func() time.Time
	sticky bool

	mu        sync.Mutex
	defaults  shot.Fields
	mode      Mode
	editingID id.ShotID
	draft     shot.Fields
	// gen changes on every transition so that a save finishing after the
	// user moved on does not clobber the newer state.
	gen uint64
}

// NewSession creates a session in ModeNew. The capacity guard reads the
// state of ledger.
func NewSession(store shot.Store, ledger *Ledger, cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &Session{
		store:    store,
		ledger:   ledger,
		clock:    cfg.Clock,
		sticky:   cfg.Sticky,
		defaults: cfg.Defaults,
	}
	s.draft = s.freshDraftLocked()
	return s
}

// Mode returns the current state.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// EditingID returns the targeted record, or id.Nil in ModeNew.
func (s *Session) EditingID() id.ShotID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// Draft returns a copy of the draft.
func (s *Session) Draft() shot.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the draft without changing the mode.
func (s *Session) SetDraft(f shot.Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = f
}

// StartEdit copies record into the draft and targets it. The ledger keeps
// owning the record until the edit is saved.
func (s *Session) StartEdit(record *shot.Shot) error {
	if record == nil || record.ID.IsNil() {
		return ValidationError{Field: "id", Message: "only persisted records can be edited"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeEditing
	s.editingID = record.ID
	s.draft = record.Fields
	s.gen++
	return nil
}

// Cancel abandons the draft and returns to ModeNew.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Save commits the draft. New records must pass the capacity guard; edits
// are never blocked by it. On failure the mode and draft are kept.
func (s *Session) Save(ctx context.Context) Outcome {
	s.mu.Lock()
	mode, editingID, gen := s.mode, s.editingID, s.gen
	draft := s.draft.Normalize()
	if draft.Date == "" {
		draft.Date = shot.Today(s.clock())
	}
	s.mu.Unlock()

	if mode == ModeEditing {
		out := updateRecord(ctx, s.store, editingID, draft)
		if out.OK() {
			s.mu.Lock()
			if s.gen == gen {
				s.resetLocked()
			}
			s.mu.Unlock()
		}
		return out
	}

	out := createRecord(ctx, s.store, s.ledger.State(), draft)
	if out.OK() {
		s.mu.Lock()
		if s.sticky {
			s.defaults = draft
		}
		if s.gen == gen {
			s.resetLocked()
		}
		s.mu.Unlock()
	}
	return out
}

// Duplicate creates a copy of record dated today. It does not touch the
// session state.
func (s *Session) Duplicate(ctx context.Context, record *shot.Shot) Outcome {
	if record == nil {
		return Outcome{
			Op:      OpDuplicate,
			Message: MsgInvalidRecord,
			Err:     ValidationError{Field: "record", Message: "nothing to duplicate"},
		}
	}

	fields := record.Fields.Clone(shot.Today(s.clock()))
	out := Outcome{Op: OpDuplicate, SourceID: record.ID, Fields: fields}

	newID, err := s.store.Create(ctx, fields)
	if err != nil {
		out.Err = storeError(string(OpDuplicate), err)
		out.Message = MsgSaveFailed
		return out
	}
	out.ID = newID
	out.Message = MsgShotDuplicated
	return out
}

// Delete removes a record. Deleting the record being edited resets the
// session to ModeNew.
func (s *Session) Delete(ctx context.Context, shotID id.ShotID) Outcome {
	out := Outcome{Op: OpDelete, ID: shotID}
	if shotID.IsNil() {
		out.Err = ValidationError{Field: "id", Message: "required"}
		out.Message = MsgInvalidRecord
		return out
	}

	if err := s.store.Delete(ctx, shotID); err != nil {
		out.Err = storeError(string(OpDelete), err)
		out.Message = MsgDeleteFailed
		return out
	}

	s.mu.Lock()
	if s.mode == ModeEditing && s.editingID == shotID {
		s.resetLocked()
	}
	s.mu.Unlock()

	out.Message = MsgShotDeleted
	return out
}

// Reconcile drops the edit target when snap no longer contains it. It reports
// whether the session was reset.
func (s *Session) Reconcile(snap *Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeEditing || snap.Find(s.editingID) != nil {
		return false
	}
	s.resetLocked()
	return true
}

// createRecord stores f as a new record if state passes the capacity guard.
func createRecord(ctx context.Context, st shot.Store, state supply.State, f shot.Fields) Outcome {
	out := Outcome{Op: OpCreate, Fields: f}
	if err := checkDate(f); err != nil {
		out.Err = err
		out.Message = MsgInvalidRecord
		return out
	}
	if !supply.CanRegister(state) {
		out.Err = fmt.Errorf("%w: %s left, %s needed", ErrCapacityGuard, state.RemainingMl, state.ShotSizeMl)
		out.Message = MsgCapacityBlocked
		return out
	}

	newID, err := st.Create(ctx, f)
	if err != nil {
		out.Err = storeError(string(OpCreate), err)
		out.Message = MsgSaveFailed
		return out
	}
	out.ID = newID
	out.Message = MsgShotRegistered
	return out
}

// updateRecord replaces the fields of shotID.
func updateRecord(ctx context.Context, st shot.Store, shotID id.ShotID, f shot.Fields) Outcome {
	out := Outcome{Op: OpUpdate, ID: shotID, Fields: f}
	if err := checkDate(f); err != nil {
		out.Err = err
		out.Message = MsgInvalidRecord
		return out
	}
	if err := st.Update(ctx, shotID, f); err != nil {
		out.Err = storeError(string(OpUpdate), err)
		out.Message = MsgSaveFailed
		return out
	}
	out.Message = MsgShotUpdated
	return out
}

// checkDate rejects a date the ledger cannot order. Blank dates pass.
func checkDate(f shot.Fields) error {
	if f.Date == "" || f.ValidDate() {
		return nil
	}
	return ValidationError{Field: "date", Message: fmt.Sprintf("%q is not a %s calendar date", f.Date, shot.DateLayout)}
}

func (s *Session) resetLocked() {
	s.mode = ModeNew
	s.editingID = id.Nil
	s.draft = s.freshDraftLocked()
	s.gen++
}

func (s *Session) freshDraftLocked() shot.Fields {
	return s.defaults.Clone(shot.Today(s.clock()))
}
