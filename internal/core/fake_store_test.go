package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memState is everything the fake store persists. InTx works on a clone and
// swaps it in on commit, which gives all-or-nothing semantics.
type memState struct {
	members []Member
	jobs    map[string]ImportJob
	order   []string
	changes map[string][]ImportChange
	counter int
}

func (s *memState) clone() *memState {
	c := &memState{
		members: slices.Clone(s.members),
		jobs:    maps.Clone(s.jobs),
		order:   slices.Clone(s.order),
		changes: make(map[string][]ImportChange, len(s.changes)),
		counter: s.counter,
	}
	for k, v := range s.changes {
		c.changes[k] = slices.Clone(v)
	}
	return c
}

func (s *memState) live(number string) (int, bool) {
	for i, m := range s.members {
		if m.MemberNumber == number && m.DeletedAt == nil {
			return i, true
		}
	}
	return -1, false
}

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failMember makes CreateMember/UpdateMember fail for a member number.
	failMember map[string]error
	// failCreatePlan makes CreatePlan fail.
	failCreatePlan error

	markFailedCalls int
}

func newMemStore(members ...MemberFields) *memStore {
	s := &memStore{
		state: &memState{
			jobs:    map[string]ImportJob{},
			changes: map[string][]ImportChange{},
		},
		failMember: map[string]error{},
	}
	for _, f := range members {
		s.state.members = append(s.state.members, Member{ID: uuid.NewString(), MemberFields: f})
	}
	return s
}

// liveMembers returns a copy of every non-deleted member keyed by number.
func (s *memStore) liveMembers() map[string]Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]Member{}
	for _, m := range s.state.members {
		if m.DeletedAt == nil {
			out[m.MemberNumber] = m
		}
	}
	return out
}

func (s *memStore) FindMembersByNumbers(_ context.Context, numbers []string) (map[string]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Member)
	for _, n := range numbers {
		if i, ok := s.state.live(n); ok {
			out[n] = s.state.members[i]
		}
	}
	return out, nil
}

func (s *memStore) FindMember(_ context.Context, number string) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.state.live(number); ok {
		return s.state.members[i], nil
	}
	return Member{}, ErrMemberNotFound
}

func (s *memStore) CreatePlan(_ context.Context, job *ImportJob, changes []ImportChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreatePlan != nil {
		return s.failCreatePlan
	}
	job.ID = uuid.NewString()
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	for i := range changes {
		changes[i].ID = uuid.NewString()
		changes[i].ImportJobID = job.ID
	}
	s.state.jobs[job.ID] = *job
	s.state.order = append(s.state.order, job.ID)
	s.state.changes[job.ID] = slices.Clone(changes)
	return nil
}

func (s *memStore) GetJob(_ context.Context, id string) (ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.state.jobs[id]
	if !ok {
		return ImportJob{}, ErrJobNotFound
	}
	return job, nil
}

func (s *memStore) ListJobs(_ context.Context, filter JobFilter) ([]ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ImportJob
	for i := len(s.state.order) - 1; i >= 0; i-- {
		job := s.state.jobs[s.state.order[i]]
		if filter.MonthKey != "" && job.MonthKey != filter.MonthKey {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job)
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memStore) ListChanges(_ context.Context, jobID string) ([]ImportChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.changes[jobID]), nil
}

func (s *memStore) MarkFailed(_ context.Context, jobID string, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markFailedCalls++
	job, ok := s.state.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != JobValidated {
		return fmt.Errorf("job %s is %s", jobID, job.Status)
	}
	job.Status = JobFailed
	job.Summary = summary
	s.state.jobs[jobID] = job
	return nil
}

func (s *memStore) InTx(_ context.Context, fn func(tx StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type memTx struct {
	store *memStore
	state *memState
}

func (t *memTx) LockJob(_ context.Context, id string) (ImportJob, error) {
	job, ok := t.state.jobs[id]
	if !ok {
		return ImportJob{}, ErrJobNotFound
	}
	return job, nil
}

func (t *memTx) ListChanges(_ context.Context, jobID string) ([]ImportChange, error) {
	return slices.Clone(t.state.changes[jobID]), nil
}

func (t *memTx) FindMember(_ context.Context, number string) (Member, error) {
	if i, ok := t.state.live(number); ok {
		return t.state.members[i], nil
	}
	return Member{}, ErrMemberNotFound
}

func (t *memTx) CreateMember(_ context.Context, f MemberFields) (Member, error) {
	if err := t.store.failMember[f.MemberNumber]; err != nil {
		return Member{}, err
	}
	if _, ok := t.state.live(f.MemberNumber); ok {
		return Member{}, errors.New("duplicate key value violates unique constraint")
	}
	m := Member{ID: uuid.NewString(), MemberFields: f, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	t.state.members = append(t.state.members, m)
	return m, nil
}

func (t *memTx) UpdateMember(_ context.Context, m Member) (Member, error) {
	if err := t.store.failMember[m.MemberNumber]; err != nil {
		return Member{}, err
	}
	for i := range t.state.members {
		if t.state.members[i].ID == m.ID {
			m.UpdatedAt = time.Now()
			t.state.members[i] = m
			return m, nil
		}
	}
	return Member{}, ErrMemberNotFound
}

func (t *memTx) SoftDeleteMember(_ context.Context, id string) error {
	for i := range t.state.members {
		if t.state.members[i].ID == id {
			if err := t.store.failMember[t.state.members[i].MemberNumber]; err != nil {
				return err
			}
			now := time.Now()
			t.state.members[i].DeletedAt = &now
			return nil
		}
	}
	return ErrMemberNotFound
}

func (t *memTx) NextMemberNumber(_ context.Context) (string, error) {
	highest := t.state.counter
	for _, m := range t.state.members {
		if n, err := strconv.Atoi(m.MemberNumber); err == nil && n > highest {
			highest = n
		}
	}
	t.state.counter = highest + 1
	return fmt.Sprintf("%06d", t.state.counter), nil
}

func (t *memTx) SetChangeMember(_ context.Context, changeID, memberID string) error {
	for jobID, changes := range t.state.changes {
		for i := range changes {
			if changes[i].ID == changeID {
				t.state.changes[jobID][i].MemberID = &memberID
				return nil
			}
		}
	}
	return fmt.Errorf("change %s not found", changeID)
}

func (t *memTx) MarkApplied(_ context.Context, jobID string, summary Summary) error {
	job, ok := t.state.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = JobApplied
	job.Summary = summary
	t.state.jobs[jobID] = job
	return nil
}

// memFiles is an in-memory FileStore.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string][]byte{}}
}

func (f *memFiles) Save(_ context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "mem://" + uuid.NewString() + "/" + name
	f.files[path] = slices.Clone(data)
	return path, nil
}

func (f *memFiles) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

// recordingAudit collects audit entries and can be told to fail.
type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (a *recordingAudit) Log(_ context.Context, e AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return a.err
}

func (a *recordingAudit) actions() []AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditAction, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}
