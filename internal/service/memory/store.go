// Package memory keeps user instructions extracted from conversations and
// renders the applicable ones into generation prompts.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/log"
)

type QueryParams struct {
	Category  string
	SessionID string
	// Limit caps the number of records returned; 0 means no limit.
	Limit int
}

// Store is the in-memory instruction memory. Mutations are serialized by a
// single write lock; List, Stats and Snapshot may run concurrently.
type Store struct {
	Now func() time.Time
	// SessionAlive, when set, reports whether a session still exists.
	// one_time candidates for ended sessions are rejected. It is called
	// under the store's write lock and must not call back into the Store.
	SessionAlive func(sessionID string) bool

	mu      sync.RWMutex
	records map[string]*core.InstructionRecord
	// active ids per (scope, category)
	index   map[indexKey]map[string]struct{}
	entropy *ulid.MonotonicEntropy

	changed chan struct{}
}

func NewStore() *Store {
	return &Store{
		Now:     time.Now,
		records: make(map[string]*core.InstructionRecord),
		index:   make(map[indexKey]map[string]struct{}),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		changed: make(chan struct{}, 1),
	}
}

// Changes signals (coalesced) after any mutation that affects durable state.
func (s *Store) Changes() <-chan struct{} {
	return s.changed
}

// Upsert validates a candidate and stores it, resolving conflicts with
// existing active records. See outranks for the tie-break.
func (s *Store) Upsert(ctx context.Context, c core.InstructionCandidate, sessionID, sourceMessage string) (core.UpsertResult, error) {
	if err := c.Validate(); err != nil {
		return core.UpsertResult{}, err
	}
	if c.Scope == core.ScopeOneTime && sessionID == "" {
		return core.UpsertResult{}, fmt.Errorf("%w: one_time scope without session", core.ErrRejected)
	}

	logger := log.Component(ctx, "instruction_memory")

	s.mu.Lock()
	res, err := s.upsertLocked(ctx, c, sessionID, sourceMessage)
	s.mu.Unlock()
	if err != nil {
		return res, err
	}

	if res.Duplicate {
		logger.Debug().Str("id", res.ID).Msg("duplicate instruction ignored")
	} else {
		logger.Info().
			Str("id", res.ID).
			Str("type", string(c.Type)).
			Str("scope", string(c.Scope)).
			Int("priority", c.Priority).
			Bool("active", res.Active).
			Strs("deactivated", res.Deactivated).
			Msg("instruction stored")
	}
	if c.Scope != core.ScopeOneTime || len(res.Deactivated) > 0 {
		s.notify()
	}
	return res, nil
}

func (s *Store) upsertLocked(ctx context.Context, c core.InstructionCandidate, sessionID, sourceMessage string) (core.UpsertResult, error) {
	now := s.Now()
	rec := &core.InstructionRecord{
		Text:          strings.TrimSpace(c.Text),
		Type:          c.Type,
		Priority:      c.Priority,
		Scope:         c.Scope,
		Category:      normalizeCategory(c.Scope, c.Category),
		SessionID:     sessionID,
		CreatedAt:     now,
		Active:        true,
		SourceMessage: sourceMessage,
	}
	key := keyOf(rec)
	norm := normalizeText(rec.Text)

	if rec.Scope == core.ScopeOneTime && s.SessionAlive != nil && !s.SessionAlive(sessionID) {
		return core.UpsertResult{}, fmt.Errorf("%w: session %s has ended", core.ErrRejected, sessionID)
	}

	var replaced *core.InstructionRecord
	if target := c.ReplacesInstruction; target != "" {
		r, ok := s.records[target]
		switch {
		case !ok || !r.Active:
			log.FromCtx(ctx).Debug().Str("replaces", target).Msg("replace target missing or inactive, falling back to conflict key")
		default:
			if err := checkReplaceChain(s.records, target); err != nil {
				return core.UpsertResult{}, err
			}
			replaced = r
		}
	}

	rivals := s.activeWithKeyLocked(key)
	for _, r := range rivals {
		if normalizeText(r.Text) != norm {
			continue
		}
		if rec.Priority > r.Priority {
			r.Priority = rec.Priority
		}
		res := core.UpsertResult{ID: r.ID, Active: true, Duplicate: true}
		if replaced != nil && replaced != r {
			s.deactivateLocked(replaced)
			res.Deactivated = []string{replaced.ID}
		}
		return res, nil
	}

	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return core.UpsertResult{}, fmt.Errorf("generate instruction id: %w", err)
	}
	rec.ID = id.String()

	res := core.UpsertResult{ID: rec.ID, Active: true}

	// An explicit replacement always wins: the target and every same-key
	// rival step aside so the key keeps a single active record.
	if replaced != nil {
		rec.Replaces = replaced.ID
		s.deactivateLocked(replaced)
		res.Deactivated = append(res.Deactivated, replaced.ID)
		for _, r := range rivals {
			if r.Active {
				s.deactivateLocked(r)
				res.Deactivated = append(res.Deactivated, r.ID)
			}
		}
	} else {
		var beaten []*core.InstructionRecord
		for _, r := range rivals {
			if !outranks(rec, r) {
				rec.Active = false
				beaten = nil
				break
			}
			beaten = append(beaten, r)
		}
		for _, r := range beaten {
			s.deactivateLocked(r)
			res.Deactivated = append(res.Deactivated, r.ID)
		}
	}
	res.Active = rec.Active

	s.records[rec.ID] = rec
	if rec.Active {
		s.indexLocked(rec)
	}
	return res, nil
}

// Query returns the active records applicable to a category and session,
// highest priority first, and marks each returned record as used.
func (s *Store) Query(ctx context.Context, p QueryParams) []core.InstructionRecord {
	s.mu.Lock()
	matched := s.matchLocked(p)
	now := s.Now()
	out := make([]core.InstructionRecord, len(matched))
	for i, r := range matched {
		r.UsageCount++
		used := now
		r.LastUsed = &used
		out[i] = copyRecord(r)
	}
	s.mu.Unlock()

	if len(out) > 0 {
		s.notify()
	}
	log.FromCtx(ctx).Debug().
		Str("category", p.Category).
		Str("session_id", p.SessionID).
		Int("count", len(out)).
		Msg("instructions queried")
	return out
}

// List applies the same filter and order as Query without recording usage.
func (s *Store) List(p QueryParams) []core.InstructionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchLocked(p)
	out := make([]core.InstructionRecord, len(matched))
	for i, r := range matched {
		out[i] = copyRecord(r)
	}
	return out
}

func (s *Store) Get(id string) (core.InstructionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return core.InstructionRecord{}, false
	}
	return copyRecord(r), true
}

func (s *Store) Stats() core.InstructionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := core.InstructionStats{
		Total:      len(s.records),
		PerSession: make(map[string]int),
		ByType:     make(map[core.InstructionType]int),
		ByScope:    make(map[core.InstructionScope]int),
	}
	for _, r := range s.records {
		if r.SessionID != "" {
			st.PerSession[r.SessionID]++
		}
		if !r.Active {
			continue
		}
		st.Active++
		st.ByType[r.Type]++
		st.ByScope[r.Scope]++
	}
	return st
}

// RemoveSessionMemories drops every one_time record created in sessionID.
// Records with wider scope stay.
func (s *Store) RemoveSessionMemories(ctx context.Context, sessionID string) int {
	s.mu.Lock()
	removed := 0
	for id, r := range s.records {
		if r.Scope != core.ScopeOneTime || r.SessionID != sessionID {
			continue
		}
		s.unindexLocked(r)
		delete(s.records, id)
		removed++
	}
	s.mu.Unlock()

	if removed > 0 {
		log.FromCtx(ctx).Debug().
			Str("session_id", sessionID).
			Int("removed", removed).
			Msg("one-time instructions removed")
	}
	return removed
}

// Snapshot returns the durable records, ordered by id. One-time records are
// tied to in-memory sessions and are never part of it.
func (s *Store) Snapshot() []core.InstructionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.InstructionRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.Scope == core.ScopeOneTime {
			continue
		}
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore replaces the store's contents and rebuilds the index.
func (s *Store) Restore(records []core.InstructionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*core.InstructionRecord, len(records))
	s.index = make(map[indexKey]map[string]struct{})
	for i := range records {
		if records[i].Scope == core.ScopeOneTime {
			continue
		}
		r := copyRecord(&records[i])
		s.records[r.ID] = &r
		if r.Active {
			s.indexLocked(&r)
		}
	}
}

// Load restores the store from repo. On failure the store is left empty and
// keeps working in memory; the error is returned for logging only.
func (s *Store) Load(ctx context.Context, repo core.InstructionRepository) error {
	records, err := repo.Load(ctx)
	if err != nil {
		s.Restore(nil)
		logger := log.Component(ctx, "instruction_memory")
		logger.Error().Err(err).Msg("failed to load instructions, continuing with empty memory")
		return fmt.Errorf("load instructions: %w", err)
	}
	s.Restore(records)
	log.FromCtx(ctx).Info().Int("count", len(records)).Msg("instructions loaded")
	return nil
}

func (s *Store) matchLocked(p QueryParams) []*core.InstructionRecord {
	category := strings.ToLower(strings.TrimSpace(p.Category))

	var out []*core.InstructionRecord
	add := func(ids map[string]struct{}) {
		for id := range ids {
			out = append(out, s.records[id])
		}
	}

	add(s.index[indexKey{scope: core.ScopeAll}])
	if category != "" {
		add(s.index[indexKey{scope: core.ScopeCategorySpecific, category: category}])
	}
	if p.SessionID != "" {
		for k, ids := range s.index {
			if k.scope != core.ScopeOneTime {
				continue
			}
			for id := range ids {
				if r := s.records[id]; r.SessionID == p.SessionID {
					out = append(out, r)
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return outranks(out[i], out[j]) })
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out
}

func (s *Store) activeWithKeyLocked(key conflictKey) []*core.InstructionRecord {
	var out []*core.InstructionRecord
	for id := range s.index[indexKey{scope: key.scope, category: key.category}] {
		r := s.records[id]
		if keyOf(r) == key {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) deactivateLocked(r *core.InstructionRecord) {
	r.Active = false
	s.unindexLocked(r)
}

func (s *Store) indexLocked(r *core.InstructionRecord) {
	k := indexKeyOf(r)
	ids, ok := s.index[k]
	if !ok {
		ids = make(map[string]struct{})
		s.index[k] = ids
	}
	ids[r.ID] = struct{}{}
}

func (s *Store) unindexLocked(r *core.InstructionRecord) {
	k := indexKeyOf(r)
	ids, ok := s.index[k]
	if !ok {
		return
	}
	delete(ids, r.ID)
	if len(ids) == 0 {
		delete(s.index, k)
	}
}

func (s *Store) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func copyRecord(r *core.InstructionRecord) core.InstructionRecord {
	c := *r
	if r.LastUsed != nil {
		t := *r.LastUsed
		c.LastUsed = &t
	}
	return c
}
