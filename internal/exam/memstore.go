package exam

import (
	"context"
	"sort"
	"sync"
)

// MemStore is a mutex-guarded in-memory Store. It backs handler and session
// tests and LAN/dev deployments that do not want a database file.
type MemStore struct {
	mu        sync.RWMutex
	exams     map[string]Exam
	questions map[string]Question
	attempts  map[string]Attempt
	answers   map[string]Answer // keyed attemptID|questionID
}

func NewMemStore() *MemStore {
	return &MemStore{
		exams:     map[string]Exam{},
		questions: map[string]Question{},
		attempts:  map[string]Attempt{},
		answers:   map[string]Answer{},
	}
}

func answerKey(attemptID, questionID string) string { return attemptID + "|" + questionID }

func (m *MemStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.exams[e.ID]; ok {
		e.CreatedBy = prev.CreatedBy
		e.CreatedAt = prev.CreatedAt
	}
	m.exams[e.ID] = e
	return nil
}

func (m *MemStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *MemStore) ListExams(_ context.Context, opts ListExamsOpts) ([]Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Exam
	for _, e := range m.exams {
		if opts.ActiveOnly && !e.IsActive {
			continue
		}
		if opts.CreatedBy != "" && e.CreatedBy != opts.CreatedBy {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *MemStore) SetExamActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return ErrExamNotFound
	}
	e.IsActive = active
	m.exams[id] = e
	return nil
}

func (m *MemStore) DeleteExam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return ErrExamNotFound
	}
	delete(m.exams, id)
	for qid, q := range m.questions {
		if q.ExamID == id {
			delete(m.questions, qid)
		}
	}
	for aid, a := range m.attempts {
		if a.ExamID != id {
			continue
		}
		delete(m.attempts, aid)
		for k, ans := range m.answers {
			if ans.AttemptID == aid {
				delete(m.answers, k)
			}
		}
	}
	return nil
}

func (m *MemStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[q.ExamID]; !ok {
		return ErrExamNotFound
	}
	m.questions[q.ID] = q
	return nil
}

func (m *MemStore) GetQuestions(_ context.Context, examID string, withKeys bool) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, q := range m.questions {
		if q.ExamID != examID {
			continue
		}
		if !withKeys {
			q.CorrectAnswer = ""
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return ErrQuestionNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *MemStore) CreateAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[a.ExamID]; !ok {
		return ErrExamNotFound
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *MemStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *MemStore) FinalizeAttempt(_ context.Context, id string, fin Finalization) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Terminal() {
		return a, nil
	}
	t := fin.SubmittedAt
	score, passed := fin.Score, fin.IsPassed
	a.SubmittedAt = &t
	a.Score = &score
	a.IsPassed = &passed
	a.Status = fin.Status
	m.attempts[id] = a
	return a, nil
}

func (m *MemStore) ListAttempts(_ context.Context, opts ListAttemptsOpts) ([]AttemptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AttemptRecord
	for _, a := range m.attempts {
		if opts.ExamID != "" && a.ExamID != opts.ExamID {
			continue
		}
		if opts.StudentID != "" && a.StudentID != opts.StudentID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		e := m.exams[a.ExamID]
		out = append(out, AttemptRecord{
			Attempt:          a,
			ExamTitle:        e.Title,
			ExamDescription:  e.Description,
			ExamPassingMarks: e.PassingMarks,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *MemStore) UpsertAnswer(_ context.Context, ans Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[ans.AttemptID]; !ok {
		return ErrAttemptNotFound
	}
	k := answerKey(ans.AttemptID, ans.QuestionID)
	if prev, ok := m.answers[k]; ok {
		ans.ID = prev.ID
	}
	m.answers[k] = ans
	return nil
}

func (m *MemStore) ListAnswers(_ context.Context, attemptID string) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Answer
	for _, a := range m.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func page[T any](in []T, limit, offset int) []T {
	if limit <= 0 {
		return in
	}
	if offset >= len(in) {
		return nil
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}
