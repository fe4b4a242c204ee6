// Package placementtest provides in-memory implementations of the placement
// engine's stores for tests.
package placementtest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"placement-service/internal/models"
	"placement-service/internal/placement"
)

// SessionStore keeps placement tests in memory with the same version check as the Mongo store.
type SessionStore struct {
	mu     sync.Mutex
	tests  map[string]*models.PlacementTest
	nextID int

	// AfterLoad, when set, runs after every successful Load outside the lock.
	AfterLoad func()
	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func NewSessionStore() *SessionStore {
	return &SessionStore{tests: make(map[string]*models.PlacementTest)}
}

func (s *SessionStore) Create(ctx context.Context, test *models.PlacementTest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := fmt.Sprintf("session-%d", s.nextID)
	stored := Clone(test)
	stored.ID = id
	stored.Version = 1
	s.tests[id] = stored
	test.Version = 1
	return id, nil
}

func (s *SessionStore) Load(ctx context.Context, id string) (*models.PlacementTest, error) {
	s.mu.Lock()
	stored, ok := s.tests[id]
	var out *models.PlacementTest
	if ok {
		out = Clone(stored)
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, placement.ErrNotFound)
	}
	if s.AfterLoad != nil {
		s.AfterLoad()
	}
	return out, nil
}

func (s *SessionStore) Save(ctx context.Context, test *models.PlacementTest) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tests[test.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", test.ID, placement.ErrNotFound)
	}
	if stored.Version != test.Version {
		return fmt.Errorf("session %s was modified concurrently: %w", test.ID, placement.ErrConflict)
	}
	test.Version++
	s.tests[test.ID] = Clone(test)
	return nil
}

func (s *SessionStore) FindByUserID(ctx context.Context, userID string, limit int) ([]models.PlacementTest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PlacementTest
	for _, t := range s.tests {
		if t.UserID == userID {
			out = append(out, *Clone(t))
		}
	}
	slices.SortFunc(out, func(a, b models.PlacementTest) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a copy of the stored test, or nil.
func (s *SessionStore) Get(id string) *models.PlacementTest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tests[id]; ok {
		return Clone(t)
	}
	return nil
}

// Len reports how many sessions were created.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tests)
}

// Usage is one RecordUsage call.
type Usage struct {
	QuestionID       string
	WasCorrect       bool
	TimeSpentSeconds float64
}

// QuestionBank serves questions from memory and records usage calls. It also
// implements the CRUD side of the question store.
type QuestionBank struct {
	mu        sync.Mutex
	questions []models.Question
	usage     []Usage
	applied   []models.UsageDelta
	nextID    int

	// UsageErr, when set, is returned by every RecordUsage.
	UsageErr error
	// ApplyErr, when set, is returned by every ApplyUsage.
	ApplyErr error
}

func NewQuestionBank(questions ...models.Question) *QuestionBank {
	return &QuestionBank{questions: questions}
}

func (b *QuestionBank) Add(questions ...models.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.questions = append(b.questions, questions...)
}

func (b *QuestionBank) FindCandidates(ctx context.Context, subject string, minDifficulty, maxDifficulty float64, excludeIDs []string) ([]models.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []models.Question
	for _, q := range b.questions {
		if !q.IsActive || q.Subject != subject {
			continue
		}
		if q.Difficulty < minDifficulty || q.Difficulty > maxDifficulty {
			continue
		}
		if slices.Contains(excludeIDs, q.ID) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (b *QuestionBank) RecordUsage(ctx context.Context, questionID string, wasCorrect bool, timeSpentSeconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.UsageErr != nil {
		return b.UsageErr
	}
	b.usage = append(b.usage, Usage{QuestionID: questionID, WasCorrect: wasCorrect, TimeSpentSeconds: timeSpentSeconds})
	return nil
}

func (b *QuestionBank) Usage() []Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.usage)
}

func (b *QuestionBank) Create(ctx context.Context, q *models.Question) (*models.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.create(q)
	return q, nil
}

func (b *QuestionBank) create(q *models.Question) {
	if q.ID == "" {
		b.nextID++
		q.ID = fmt.Sprintf("q-%d", b.nextID)
	}
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now
	stored := *q
	stored.Options = slices.Clone(q.Options)
	b.questions = append(b.questions, stored)
}

func (b *QuestionBank) InsertMany(ctx context.Context, questions []models.Question) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range questions {
		b.create(&questions[i])
	}
	return len(questions), nil
}

func (b *QuestionBank) find(id string) int {
	return slices.IndexFunc(b.questions, func(q models.Question) bool { return q.ID == id })
}

func (b *QuestionBank) FindByID(ctx context.Context, id string) (*models.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.find(id)
	if i < 0 {
		return nil, fmt.Errorf("question %s: %w", id, placement.ErrNotFound)
	}
	q := b.questions[i]
	return &q, nil
}

func (b *QuestionBank) Update(ctx context.Context, id string, q *models.Question) (*models.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.find(id)
	if i < 0 {
		return nil, fmt.Errorf("question %s: %w", id, placement.ErrNotFound)
	}
	existing := b.questions[i]
	updated := *q
	updated.ID = id
	updated.TimesShown = existing.TimesShown
	updated.TimesCorrect = existing.TimesCorrect
	updated.TotalTimeSeconds = existing.TotalTimeSeconds
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	b.questions[i] = updated
	return &updated, nil
}

func (b *QuestionBank) Deactivate(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.find(id)
	if i < 0 {
		return fmt.Errorf("question %s: %w", id, placement.ErrNotFound)
	}
	b.questions[i].IsActive = false
	return nil
}

func (b *QuestionBank) Search(ctx context.Context, query *models.QuestionSearchQuery) ([]models.Question, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var matched []models.Question
	for _, q := range b.questions {
		if query.Subject != "" && q.Subject != query.Subject {
			continue
		}
		if query.ActiveOnly && !q.IsActive {
			continue
		}
		matched = append(matched, q)
	}
	total := int64(len(matched))

	if query.PageSize > 0 {
		start := min(len(matched), max(0, (query.Page-1)*query.PageSize))
		end := min(len(matched), start+query.PageSize)
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (b *QuestionBank) ApplyUsage(ctx context.Context, delta models.UsageDelta) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ApplyErr != nil {
		return b.ApplyErr
	}
	b.applied = append(b.applied, delta)
	if i := b.find(delta.QuestionID); i >= 0 {
		b.questions[i].TimesShown += delta.Shown
		b.questions[i].TimesCorrect += delta.Correct
		b.questions[i].TotalTimeSeconds += delta.TotalTimeSeconds
	}
	return nil
}

// Applied returns the usage deltas written through ApplyUsage.
func (b *QuestionBank) Applied() []models.UsageDelta {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.applied)
}

func (b *QuestionBank) CountActiveBySubject(ctx context.Context) (map[string]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[string]int64)
	for _, q := range b.questions {
		if q.IsActive {
			counts[q.Subject]++
		}
	}
	return counts, nil
}

// Len reports how many questions the bank holds, active or not.
func (b *QuestionBank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.questions)
}

// ProfileStore keeps placement profiles in memory. Users must be added before
// they can start a placement.
type ProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.PlacementProfile

	// ApplyErr, when set, is returned by every ApplyPlacementResult.
	ApplyErr error
}

func NewProfileStore(userIDs ...string) *ProfileStore {
	s := &ProfileStore{profiles: make(map[string]*models.PlacementProfile)}
	for _, id := range userIDs {
		s.AddUser(id)
	}
	return s
}

func (s *ProfileStore) AddUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = &models.PlacementProfile{
		UserID:     userID,
		Placements: make(map[string]models.SubjectPlacement),
	}
}

func (s *ProfileStore) EnsureCanStart(ctx context.Context, userID, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, placement.ErrNotFound)
	}
	if p.HasPlacement(subject) {
		return fmt.Errorf("user %s already placed in %s: %w", userID, subject, placement.ErrConflict)
	}
	return nil
}

func (s *ProfileStore) ApplyPlacementResult(ctx context.Context, userID, subject, placementTestID string, results *models.Results) error {
	if s.ApplyErr != nil {
		return s.ApplyErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, placement.ErrNotFound)
	}
	grade := models.GradeForScore(results.OverallScore)
	p.Placements[subject] = models.SubjectPlacement{
		PlacementTestID:  placementTestID,
		OverallScore:     results.OverallScore,
		RecommendedLevel: results.RecommendedLevel,
		Grade:            grade,
		TakenAt:          time.Now(),
	}
	p.Level = results.RecommendedLevel
	p.Grade = grade
	p.PlacementTestTaken = true
	return nil
}

func (s *ProfileStore) FindByUserID(ctx context.Context, userID string) (*models.PlacementProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, placement.ErrNotFound)
	}
	cp := *p
	cp.Placements = make(map[string]models.SubjectPlacement, len(p.Placements))
	for k, v := range p.Placements {
		cp.Placements[k] = v
	}
	return &cp, nil
}

// Question builds an active four-option question whose correct answer is index 0.
func Question(id, subject string, difficulty float64) models.Question {
	return models.Question{
		ID:                 id,
		Subject:            subject,
		Difficulty:         difficulty,
		Text:               "Question " + id,
		Options:            []string{"right", "wrong 1", "wrong 2", "wrong 3"},
		CorrectAnswerIndex: 0,
		IsActive:           true,
	}
}

// Clone deep-copies a placement test.
func Clone(t *models.PlacementTest) *models.PlacementTest {
	out := *t
	out.Config.Subjects = slices.Clone(t.Config.Subjects)
	out.Questions = make([]models.AskedQuestion, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = slices.Clone(q.Options)
		if q.UserAnswerIndex != nil {
			v := *q.UserAnswerIndex
			q.UserAnswerIndex = &v
		}
		if q.IsCorrect != nil {
			v := *q.IsCorrect
			q.IsCorrect = &v
		}
		if q.TimeSpentSeconds != nil {
			v := *q.TimeSpentSeconds
			q.TimeSpentSeconds = &v
		}
		if q.AnsweredAt != nil {
			v := *q.AnsweredAt
			q.AnsweredAt = &v
		}
		out.Questions[i] = q
	}
	if t.Results != nil {
		r := *t.Results
		r.SubjectScores = slices.Clone(t.Results.SubjectScores)
		out.Results = &r
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		out.CompletedAt = &v
	}
	return &out
}
