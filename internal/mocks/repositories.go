package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/google/uuid"
)

// Store is the shared in-memory state behind the mock repositories. Deletes
// cascade the way the Postgres foreign keys do.
type Store struct {
	mu sync.Mutex

	Users     map[string]*models.User
	Profiles  map[string]*models.Profile
	Funnels   map[string]*models.Funnel
	Stages    map[string]*models.Stage
	Cards     map[string]*models.Card
	History   []models.CardHistoryEntry
	Tasks     map[string]*models.Task
	Contacts  map[string]*models.Contact
	Goals     map[int64]*models.Goal
	Jobs      map[string]*models.Job
	JobErrors map[string][]models.ValidationError

	nextGoalID int64

	// InsertError, when set, is returned by every insert
	InsertError error
	// BatchInsertCalls counts contact batch inserts
	BatchInsertCalls int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Users:     make(map[string]*models.User),
		Profiles:  make(map[string]*models.Profile),
		Funnels:   make(map[string]*models.Funnel),
		Stages:    make(map[string]*models.Stage),
		Cards:     make(map[string]*models.Card),
		Tasks:     make(map[string]*models.Task),
		Contacts:  make(map[string]*models.Contact),
		Goals:     make(map[int64]*models.Goal),
		Jobs:      make(map[string]*models.Job),
		JobErrors: make(map[string][]models.ValidationError),
	}
}

// NewRepositories wires every mock repository to one shared store
func NewRepositories() (*repository.Repositories, *Store) {
	s := NewStore()
	return &repository.Repositories{
		User:    &MockUserRepository{s},
		Profile: &MockProfileRepository{s},
		Funnel:  &MockFunnelRepository{s},
		Stage:   &MockStageRepository{s},
		Card:    &MockCardRepository{s},
		Task:    &MockTaskRepository{s},
		Contact: &MockContactRepository{s},
		Goal:    &MockGoalRepository{s},
		Job:     &MockJobRepository{s},
	}, s
}

// CardHistory returns the history descriptions of a card in insertion order
func (s *Store) CardHistory(cardID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, h := range s.History {
		if h.CardID == cardID {
			out = append(out, h.Description)
		}
	}
	return out
}

func (s *Store) appendHistory(cardID, description string) {
	if description == "" {
		return
	}
	s.History = append(s.History, models.CardHistoryEntry{
		ID: uuid.New().String(), CardID: cardID, Description: description, CreatedAt: time.Now(),
	})
}

func (s *Store) deleteCardLocked(id string) {
	delete(s.Cards, id)
	for tid, t := range s.Tasks {
		if t.CardID == id {
			delete(s.Tasks, tid)
		}
	}
	kept := s.History[:0]
	for _, h := range s.History {
		if h.CardID != id {
			kept = append(kept, h)
		}
	}
	s.History = kept
}

func (s *Store) deleteStageLocked(id string) {
	delete(s.Stages, id)
	for cid, c := range s.Cards {
		if c.StageID == id {
			s.deleteCardLocked(cid)
		}
	}
}

func byCreated(ai, bi time.Time, aid, bid string) bool {
	if !ai.Equal(bi) {
		return ai.Before(bi)
	}
	return aid < bid
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct{ *Store }

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{NewStore()}
}

func (m *MockUserRepository) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	email := strings.ToLower(user.Email)
	for _, u := range m.Users {
		if u.Email == email {
			return repository.ErrDuplicate
		}
	}
	u := *user
	u.Email = email
	p := *profile
	p.Email = email
	if p.Permissions == nil {
		p.Permissions = map[string]bool{}
	}
	m.Users[u.ID] = &u
	m.Profiles[p.ID] = &p
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range m.Users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Users), nil
}

// MockProfileRepository is a mock implementation of ProfileRepository
type MockProfileRepository struct{ *Store }

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	c.Permissions = make(map[string]bool, len(p.Permissions))
	for k, v := range p.Permissions {
		c.Permissions[k] = v
	}
	return &c
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return nil, nil
	}
	return copyProfile(p), nil
}

func (m *MockProfileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Profile, 0, len(m.Profiles))
	for _, p := range m.Profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[profile.ID]
	if !ok {
		return nil
	}
	updated := copyProfile(profile)
	updated.APIKeyID = p.APIKeyID
	updated.UpdatedAt = time.Now()
	m.Profiles[profile.ID] = updated
	return nil
}

func (m *MockProfileRepository) SetAPIKeyID(ctx context.Context, id, keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Profiles[id]; ok {
		p.APIKeyID = keyID
	}
	return nil
}

// MockFunnelRepository is a mock implementation of FunnelRepository
type MockFunnelRepository struct{ *Store }

func (m *MockFunnelRepository) CreateWithStages(ctx context.Context, funnel *models.Funnel, stages []*models.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	f := *funnel
	f.Stages = nil
	m.Funnels[f.ID] = &f
	for _, s := range stages {
		c := *s
		m.Stages[c.ID] = &c
	}
	return nil
}

func (m *MockFunnelRepository) GetByID(ctx context.Context, id string) (*models.Funnel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Funnels[id]
	if !ok {
		return nil, nil
	}
	c := *f
	return &c, nil
}

func (m *MockFunnelRepository) List(ctx context.Context) ([]*models.Funnel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Funnel, 0, len(m.Funnels))
	for _, f := range m.Funnels {
		c := *f
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return byCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (m *MockFunnelRepository) UpdateLayout(ctx context.Context, funnel *models.Funnel, stages []models.Stage, removeIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Funnels[funnel.ID]
	if !ok {
		return nil
	}
	f.Name = funnel.Name
	for _, id := range removeIDs {
		if s, ok := m.Stages[id]; ok && s.FunnelID == funnel.ID {
			m.deleteStageLocked(id)
		}
	}
	for _, s := range stages {
		c := s
		c.FunnelID = funnel.ID
		if existing, ok := m.Stages[c.ID]; ok {
			existing.Name = c.Name
			existing.Position = c.Position
			continue
		}
		m.Stages[c.ID] = &c
	}
	return nil
}

func (m *MockFunnelRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Funnels, id)
	for sid, s := range m.Stages {
		if s.FunnelID == id {
			m.deleteStageLocked(sid)
		}
	}
	return nil
}

// MockStageRepository is a mock implementation of StageRepository
type MockStageRepository struct{ *Store }

func (m *MockStageRepository) listLocked(filter func(*models.Stage) bool) []models.Stage {
	var out []models.Stage
	for _, s := range m.Stages {
		if filter(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FunnelID != out[j].FunnelID {
			return out[i].FunnelID < out[j].FunnelID
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return byCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (m *MockStageRepository) Create(ctx context.Context, stage *models.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, s := range m.Stages {
		if s.FunnelID == stage.FunnelID && s.Position == stage.Position {
			return repository.ErrDuplicate
		}
	}
	c := *stage
	m.Stages[c.ID] = &c
	return nil
}

func (m *MockStageRepository) GetByID(ctx context.Context, id string) (*models.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Stages[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *MockStageRepository) ListByFunnel(ctx context.Context, funnelID string) ([]models.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(s *models.Stage) bool { return s.FunnelID == funnelID }), nil
}

func (m *MockStageRepository) ListAll(ctx context.Context) ([]models.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(*models.Stage) bool { return true }), nil
}

func (m *MockStageRepository) Rename(ctx context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Stages[id]; ok {
		s.Name = name
	}
	return nil
}

func (m *MockStageRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Stages[id]
	if !ok {
		return nil
	}
	funnelID := s.FunnelID
	m.deleteStageLocked(id)

	siblings := m.listLocked(func(s *models.Stage) bool { return s.FunnelID == funnelID })
	for i, sib := range siblings {
		m.Stages[sib.ID].Position = i
	}
	return nil
}

func (m *MockStageRepository) UpdatePositions(ctx context.Context, stages []models.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stages {
		if stored, ok := m.Stages[s.ID]; ok {
			stored.Position = s.Position
		}
	}
	return nil
}

// MockCardRepository is a mock implementation of CardRepository
type MockCardRepository struct{ *Store }

func (m *MockCardRepository) listLocked(filter func(*models.Card) bool) []models.Card {
	var out []models.Card
	for _, c := range m.Cards {
		if filter(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StageID != out[j].StageID {
			return out[i].StageID < out[j].StageID
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return byCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (m *MockCardRepository) CreateWithTasks(ctx context.Context, card *models.Card, tasks []*models.Task, history string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	c := *card
	c.Tasks = nil
	m.Cards[c.ID] = &c
	for _, t := range tasks {
		tc := *t
		m.Tasks[tc.ID] = &tc
	}
	m.appendHistory(c.ID, history)
	return nil
}

func (m *MockCardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Cards[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MockCardRepository) ListByStages(ctx context.Context, stageIDs []string) ([]models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(stageIDs))
	for _, id := range stageIDs {
		want[id] = true
	}
	return m.listLocked(func(c *models.Card) bool { return want[c.StageID] }), nil
}

func (m *MockCardRepository) ListAll(ctx context.Context) ([]models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(*models.Card) bool { return true }), nil
}

func (m *MockCardRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Cards), nil
}

func (m *MockCardRepository) Update(ctx context.Context, card *models.Card, history string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Cards[card.ID]
	if !ok {
		return nil
	}
	c := *card
	c.StageID = stored.StageID
	c.Position = stored.Position
	c.ClosedAt = stored.ClosedAt
	c.Tasks = nil
	c.UpdatedAt = time.Now()
	m.Cards[c.ID] = &c
	m.appendHistory(c.ID, history)
	return nil
}

func (m *MockCardRepository) Move(ctx context.Context, moved models.Card, changed []models.Card, history string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.Cards[moved.ID]; ok {
		stored.StageID = moved.StageID
		stored.Position = moved.Position
		stored.ClosedAt = moved.ClosedAt
		stored.UpdatedAt = time.Now()
	}
	for _, c := range changed {
		if c.ID == moved.ID {
			continue
		}
		if stored, ok := m.Cards[c.ID]; ok {
			stored.Position = c.Position
		}
	}
	m.appendHistory(moved.ID, history)
	return nil
}

func (m *MockCardRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCardLocked(id)
	return nil
}

func (m *MockCardRepository) CountByStage(ctx context.Context, stageID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Cards {
		if c.StageID == stageID {
			n++
		}
	}
	return n, nil
}

func (m *MockCardRepository) History(ctx context.Context, cardID string) ([]models.CardHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CardHistoryEntry
	for _, h := range m.Store.History {
		if h.CardID == cardID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MockCardRepository) StreamAll(ctx context.Context, callback func(*models.Card) error) error {
	m.mu.Lock()
	cards := m.listLocked(func(*models.Card) bool { return true })
	m.mu.Unlock()
	for i := range cards {
		if err := callback(&cards[i]); err != nil {
			return err
		}
	}
	return nil
}

// MockTaskRepository is a mock implementation of TaskRepository
type MockTaskRepository struct{ *Store }

func (m *MockTaskRepository) listLocked(filter func(*models.Task) bool) []models.Task {
	var out []models.Task
	for _, t := range m.Tasks {
		if filter(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return byCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	t := *task
	m.Tasks[t.ID] = &t
	return nil
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (m *MockTaskRepository) Update(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tasks[task.ID]; ok {
		t := *task
		m.Tasks[t.ID] = &t
	}
	return nil
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Tasks, id)
	return nil
}

func (m *MockTaskRepository) ListByCards(ctx context.Context, cardIDs []string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		want[id] = true
	}
	return m.listLocked(func(t *models.Task) bool { return want[t.CardID] }), nil
}

func (m *MockTaskRepository) ListAll(ctx context.Context) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(func(*models.Task) bool { return true }), nil
}

func (m *MockTaskRepository) ListCalendar(ctx context.Context, from, to *models.Date) ([]models.CalendarTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := m.listLocked(func(t *models.Task) bool {
		if from == nil && to == nil {
			return true
		}
		if t.DueDate == nil {
			return false
		}
		if from != nil && t.DueDate.Before(from.Time) {
			return false
		}
		if to != nil && t.DueDate.After(to.Time) {
			return false
		}
		return true
	})
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(b.Time)
		}
	})

	out := make([]models.CalendarTask, 0, len(tasks))
	for _, t := range tasks {
		title := ""
		if c, ok := m.Cards[t.CardID]; ok {
			title = c.Title
		}
		out = append(out, models.CalendarTask{Task: t, CardTitle: title})
	}
	return out, nil
}

// MockContactRepository is a mock implementation of ContactRepository
type MockContactRepository struct{ *Store }

func NewMockContactRepository() *MockContactRepository {
	return &MockContactRepository{NewStore()}
}

func (m *MockContactRepository) sortedLocked(filter func(*models.Contact) bool) []*models.Contact {
	var out []*models.Contact
	for _, c := range m.Contacts {
		if filter(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return byCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (m *MockContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	c := *contact
	m.Contacts[c.ID] = &c
	return nil
}

func (m *MockContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Contacts[contact.ID]; ok {
		c := *contact
		c.UpdatedAt = time.Now()
		m.Contacts[c.ID] = &c
	}
	return nil
}

func (m *MockContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Contacts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MockContactRepository) List(ctx context.Context, search string) ([]*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(search))
	return m.sortedLocked(func(c *models.Contact) bool {
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(strings.ToLower(c.Company), q)
	}), nil
}

func (m *MockContactRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Contacts, id)
	for _, c := range m.Cards {
		if c.ContactID == id {
			c.ContactID = ""
		}
	}
	return nil
}

func (m *MockContactRepository) BatchInsert(ctx context.Context, contacts []*models.Contact) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchInsertCalls++
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	for _, contact := range contacts {
		c := *contact
		m.Contacts[c.ID] = &c
	}
	return len(contacts), nil
}

func (m *MockContactRepository) NamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if c, ok := m.Contacts[id]; ok {
			names[id] = c.Name
		}
	}
	return names, nil
}

func (m *MockContactRepository) CreatedSince(ctx context.Context, since time.Time) ([]models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Contact
	for _, c := range m.sortedLocked(func(c *models.Contact) bool { return !c.CreatedAt.Before(since) }) {
		out = append(out, *c)
	}
	return out, nil
}

func (m *MockContactRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Contacts), nil
}

func (m *MockContactRepository) StreamAll(ctx context.Context, callback func(*models.Contact) error) error {
	m.mu.Lock()
	contacts := m.sortedLocked(func(*models.Contact) bool { return true })
	m.mu.Unlock()
	for _, c := range contacts {
		if err := callback(c); err != nil {
			return err
		}
	}
	return nil
}

// MockGoalRepository is a mock implementation of GoalRepository
type MockGoalRepository struct{ *Store }

func NewMockGoalRepository() *MockGoalRepository {
	return &MockGoalRepository{NewStore()}
}

func (m *MockGoalRepository) Upsert(ctx context.Context, goal *models.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, g := range m.Goals {
		if g.Month == goal.Month && g.Year == goal.Year {
			g.GoalAmount = goal.GoalAmount
			g.SetBy = goal.SetBy
			g.UpdatedAt = now
			*goal = *g
			return nil
		}
	}
	m.nextGoalID++
	g := *goal
	g.ID = m.nextGoalID
	g.CreatedAt = now
	g.UpdatedAt = now
	m.Goals[g.ID] = &g
	*goal = g
	return nil
}

func (m *MockGoalRepository) GetByID(ctx context.Context, id int64) (*models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.Goals[id]
	if !ok {
		return nil, nil
	}
	c := *g
	return &c, nil
}

func (m *MockGoalRepository) List(ctx context.Context) ([]models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Goal, 0, len(m.Goals))
	for _, g := range m.Goals {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (m *MockGoalRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Goals, id)
	return nil
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct{ *Store }

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{NewStore()}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.IdempotencyKey != "" {
		for _, j := range m.Jobs {
			if j.IdempotencyKey == job.IdempotencyKey {
				return repository.ErrDuplicate
			}
		}
	}
	j := *job
	m.Jobs[j.ID] = &j
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := *job
	m.Jobs[j.ID] = &j
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	c := *j
	return &c, nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.Jobs {
		if j.IdempotencyKey == key {
			c := *j
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.Job
	for _, j := range m.Jobs {
		if j.Status == models.JobStatusPending {
			c := *j
			pending = append(pending, &c)
		}
	}
	sort.Slice(pending, func(i, k int) bool {
		return byCreated(pending[i].CreatedAt, pending[k].CreatedAt, pending[i].ID, pending[k].ID)
	})
	return pending, nil
}

func (m *MockJobRepository) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.Jobs[jobID]
	if !ok || j.Status != models.JobStatusPending {
		return false, nil
	}
	now := time.Now()
	j.Status = models.JobStatusProcessing
	j.StartedAt = &now
	return true, nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.ValidationError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JobErrors[jobID] = append(m.JobErrors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := append([]models.ValidationError(nil), m.JobErrors[jobID]...)
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Line < errs[j].Line })
	if limit > 0 && len(errs) > limit {
		errs = errs[:limit]
	}
	return errs, nil
}

var (
	_ repository.UserRepository    = (*MockUserRepository)(nil)
	_ repository.ProfileRepository = (*MockProfileRepository)(nil)
	_ repository.FunnelRepository  = (*MockFunnelRepository)(nil)
	_ repository.StageRepository   = (*MockStageRepository)(nil)
	_ repository.CardRepository    = (*MockCardRepository)(nil)
	_ repository.TaskRepository    = (*MockTaskRepository)(nil)
	_ repository.ContactRepository = (*MockContactRepository)(nil)
	_ repository.GoalRepository    = (*MockGoalRepository)(nil)
	_ repository.JobRepository     = (*MockJobRepository)(nil)
)
