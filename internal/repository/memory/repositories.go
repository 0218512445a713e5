package memory

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Members ---

type memberRepository struct{ s *Store }

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) (primitive.ObjectID, error) {
	if member.Email == "" || member.Name == "" {
		return primitive.NilObjectID, errors.New("member email and name are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.members {
		if strings.EqualFold(existing.Email, member.Email) || existing.Name == member.Name {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	member.ID = primitive.NewObjectID()
	now := r.s.now()
	member.CreatedAt = now
	member.UpdatedAt = now
	r.s.members[member.ID] = *member
	return member.ID, nil
}

func (r *memberRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.members {
		if strings.EqualFold(m.Email, email) {
			m := m
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memberRepository) MarkAttendance(ctx context.Context, memberID primitive.ObjectID, date string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	m.AttendanceDays++
	m.UpdatedAt = now
	r.s.members[memberID] = m
	r.s.marks = append(r.s.marks, domain.AttendanceMark{
		ID:        primitive.NewObjectID(),
		MemberID:  memberID,
		Date:      date,
		CreatedAt: now,
	})
	return nil
}

// --- Exercises ---

type exerciseRepository struct{ s *Store }

func (r *exerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if exercise.Name == "" || exercise.MemberID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("exercise name and member ID are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	exercise.ID = primitive.NewObjectID()
	if exercise.Status == "" {
		exercise.Status = domain.ExerciseActive
	}
	now := r.s.now()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now
	r.s.exercises[exercise.ID] = *exercise
	r.s.exerciseOrder = append(r.s.exerciseOrder, exercise.ID)
	if tx := txFrom(ctx); tx != nil {
		id := exercise.ID
		tx.onRollback(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			delete(r.s.exercises, id)
			r.s.exerciseOrder = removeID(r.s.exerciseOrder, id)
		})
	}
	return exercise.ID, nil
}

func (r *exerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *exerciseRepository) GetByIDAndMember(ctx context.Context, id, memberID primitive.ObjectID) (*domain.Exercise, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsOwnedBy(memberID) {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

func (r *exerciseRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Exercise, error) {
	return r.list(func(e domain.Exercise) bool { return e.MemberID == memberID }), nil
}

func (r *exerciseRepository) ListNonRetired(ctx context.Context) ([]domain.Exercise, error) {
	return r.list(func(e domain.Exercise) bool { return !e.IsRetired() }), nil
}

func (r *exerciseRepository) list(keep func(domain.Exercise) bool) []domain.Exercise {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Exercise{}
	for _, id := range r.s.exerciseOrder {
		if e := r.s.exercises[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *exerciseRepository) Retire(ctx context.Context, id, memberID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.exercises[id]
	if !ok || e.MemberID != memberID {
		return repository.ErrNotFound
	}
	prev := e
	e.Status = domain.ExerciseRetired
	e.UpdatedAt = r.s.now()
	r.s.exercises[id] = e
	if tx := txFrom(ctx); tx != nil {
		tx.onRollback(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			r.s.exercises[id] = prev
		})
	}
	return nil
}

// --- Sessions ---

type sessionRepository struct{ s *Store }

func cloneSession(in domain.ExerciseSession) domain.ExerciseSession {
	out := in
	if in.StartedAt != nil {
		started := *in.StartedAt
		out.StartedAt = &started
	}
	return out
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.ExerciseSession) error {
	if session.ExerciseID == primitive.NilObjectID {
		return repository.ErrInvalidRecord
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.sessions[session.ExerciseID]; exists {
		return repository.ErrDuplicate
	}
	session.UpdatedAt = r.s.now()
	r.s.sessions[session.ExerciseID] = cloneSession(*session)
	if tx := txFrom(ctx); tx != nil {
		id := session.ExerciseID
		tx.onRollback(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			delete(r.s.sessions, id)
		})
	}
	return nil
}

func (r *sessionRepository) GetByExerciseID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.ExerciseSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[exerciseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneSession(sess)
	return &out, nil
}

func (r *sessionRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.ExerciseSession, error) {
	defer r.s.readLock(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ExerciseSession{}
	for _, id := range r.s.exerciseOrder {
		if sess, ok := r.s.sessions[id]; ok && sess.MemberID == memberID {
			out = append(out, cloneSession(sess))
		}
	}
	return out, nil
}

func (r *sessionRepository) Update(ctx context.Context, exerciseID primitive.ObjectID, fn func(*domain.ExerciseSession) error) (*domain.ExerciseSession, error) {
	lock := r.s.lockFor(exerciseID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.RLock()
	current, ok := r.s.sessions[exerciseID]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	working := cloneSession(current)
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.ExerciseID = exerciseID
	working.Version = current.Version + 1
	working.UpdatedAt = r.s.now()

	r.s.mu.Lock()
	r.s.sessions[exerciseID] = cloneSession(working)
	r.s.mu.Unlock()

	if tx := txFrom(ctx); tx != nil {
		tx.onRollback(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			r.s.sessions[exerciseID] = current
		})
	}
	return &working, nil
}

// --- History ---

type historyRepository struct{ s *Store }

func (r *historyRepository) Create(ctx context.Context, record *domain.HistoryRecord) (primitive.ObjectID, error) {
	if record.ExerciseID == primitive.NilObjectID || record.Day.IsZero() {
		return primitive.NilObjectID, repository.ErrInvalidRecord
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record.ID = primitive.NewObjectID()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.s.now()
	}
	r.s.history = append(r.s.history, *record)
	if tx := txFrom(ctx); tx != nil {
		id := record.ID
		tx.onRollback(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			for i, h := range r.s.history {
				if h.ID == id {
					r.s.history = append(r.s.history[:i], r.s.history[i+1:]...)
					return
				}
			}
		})
	}
	return record.ID, nil
}

func (r *historyRepository) ListByMemberAndWindow(ctx context.Context, memberID primitive.ObjectID, start, end time.Time) ([]domain.HistoryRecord, error) {
	defer r.s.readLock(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.HistoryRecord{}
	for _, h := range r.s.history {
		if h.MemberID == memberID && !h.Day.Before(start) && h.Day.Before(end) {
			out = append(out, h)
		}
	}
	return out, nil
}

// --- Teams ---

type teamRepository struct{ s *Store }

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) (primitive.ObjectID, error) {
	if team.Name == "" {
		return primitive.NilObjectID, errors.New("team name is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	team.ID = primitive.NewObjectID()
	now := r.s.now()
	team.CreatedAt = now
	team.UpdatedAt = now
	stored := *team
	stored.MemberIDs = append([]primitive.ObjectID(nil), team.MemberIDs...)
	r.s.teams[team.ID] = stored
	return team.ID, nil
}

func (r *teamRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.MemberIDs = append([]primitive.ObjectID(nil), t.MemberIDs...)
	return &t, nil
}

func (r *teamRepository) AddMember(ctx context.Context, teamID, memberID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[teamID]
	if !ok {
		return repository.ErrNotFound
	}
	if t.HasMember(memberID) {
		return nil
	}
	t.MemberIDs = append(append([]primitive.ObjectID(nil), t.MemberIDs...), memberID)
	t.UpdatedAt = r.s.now()
	r.s.teams[teamID] = t
	return nil
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
