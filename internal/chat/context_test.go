package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagist/internal/ai"
	"garagist/internal/cars"
	"garagist/internal/complaints"
)

// memStore is an in-memory Repo used across the package tests.
type memStore struct {
	sessions map[int64]*Session
	turns    map[int64][]Turn
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{sessions: map[int64]*Session{}, turns: map[int64][]Turn{}}
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) GetSession(_ context.Context, id int64) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSessions(_ context.Context, f SessionFilter) ([]Session, error) {
	var out []Session
	for _, s := range m.sessions {
		if f.ComplaintID > 0 && s.ComplaintID != f.ComplaintID {
			continue
		}
		if f.Active != nil && s.Active != *f.Active {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) SetSessionActive(_ context.Context, id int64, active bool) error {
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Active = active
	if active {
		s.ClosedAt = nil
	} else {
		now := time.Now()
		s.ClosedAt = &now
	}
	return nil
}

func (m *memStore) AppendTurn(_ context.Context, sessionID int64, role ai.Role, text string) (*Turn, error) {
	m.nextID++
	t := Turn{
		ID:        m.nextID,
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
	m.turns[sessionID] = append(m.turns[sessionID], t)
	return &t, nil
}

func (m *memStore) ListTurns(_ context.Context, sessionID int64, limit int) ([]Turn, error) {
	all := m.turns[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Turn, len(all))
	copy(out, all)
	return out, nil
}

func (m *memStore) CountTurns(_ context.Context, sessionID int64) (int, error) {
	return len(m.turns[sessionID]), nil
}

// fakeVehicles serves a single vehicle summary.
type fakeVehicles struct {
	summary cars.Summary
}

func (f *fakeVehicles) Summary(_ context.Context, carID int64) (*cars.Summary, error) {
	s := f.summary
	s.CarID = carID
	return &s, nil
}

// fakeComplaints serves complaints keyed by id, with ListByCar matching
// the store contract: most recent first, excludeID skipped, limit applied.
type fakeComplaints struct {
	byID map[int64]complaints.Complaint
}

func (f *fakeComplaints) Get(_ context.Context, id int64) (*complaints.Complaint, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, complaints.ErrNotFound
	}
	return &c, nil
}

func (f *fakeComplaints) ListByCar(_ context.Context, carID, excludeID int64, limit int) ([]complaints.Complaint, error) {
	var out []complaints.Complaint
	for _, c := range f.byID {
		if c.CarID != carID || c.ID == excludeID {
			continue
		}
		out = append(out, c)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testComplaint(id, carID int64, category complaints.Category, created time.Time) complaints.Complaint {
	return complaints.Complaint{
		ID:         id,
		CarID:      carID,
		Text:       "complaint " + category.Display(),
		Category:   category,
		Confidence: 0.8,
		Status:     complaints.StatusNew,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func testAggregator(cmps *fakeComplaints, store *memStore) *Aggregator {
	return NewAggregator(&fakeVehicles{summary: cars.Summary{
		DisplayName:     "2018 Toyota Corolla",
		LicensePlate:    "AB123CD",
		Mileage:         95000,
		TotalComplaints: len(cmps.byID),
	}}, cmps, store)
}

func TestBuildNoHistorySentinel(t *testing.T) {
	store := newMemStore()
	cmps := &fakeComplaints{byID: map[int64]complaints.Complaint{
		1: testComplaint(1, 10, complaints.CategoryEngine, time.Now()),
	}}
	agg := testAggregator(cmps, store)

	sess := &Session{ComplaintID: 1}
	require.NoError(t, store.CreateSession(context.Background(), sess))

	bundle, err := agg.Build(context.Background(), sess, 0)
	require.NoError(t, err)

	assert.Empty(t, bundle.History)
	assert.Contains(t, bundle.Render(), noHistorySentinel)
}

func TestBuildHistoryCapAndExclusion(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	byID := map[int64]complaints.Complaint{}
	for i := int64(1); i <= 8; i++ {
		byID[i] = testComplaint(i, 10, complaints.CategoryEngine, base.Add(time.Duration(i)*time.Hour))
	}
	cmps := &fakeComplaints{byID: byID}
	agg := testAggregator(cmps, store)

	// session about the most recent complaint
	sess := &Session{ComplaintID: 8}
	require.NoError(t, store.CreateSession(context.Background(), sess))

	bundle, err := agg.Build(context.Background(), sess, 0)
	require.NoError(t, err)

	require.Len(t, bundle.History, historyComplaintLimit)
	// most recent first, current complaint excluded
	assert.Equal(t, complaints.FormatDate(base.Add(7*time.Hour)), bundle.History[0].Date)
	for _, entry := range bundle.History {
		assert.NotEqual(t, complaints.FormatDate(base.Add(8*time.Hour)), entry.Date)
	}
}

func TestBuildRecurringIssues(t *testing.T) {
	store := newMemStore()
	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t1.Add(48 * time.Hour)
	cmps := &fakeComplaints{byID: map[int64]complaints.Complaint{
		1: testComplaint(1, 10, complaints.CategoryEngine, t1),
		2: testComplaint(2, 10, complaints.CategoryBrakesSafety, t2),
		3: testComplaint(3, 10, complaints.CategoryEngine, t3),
	}}
	agg := testAggregator(cmps, store)

	sess := &Session{ComplaintID: 3}
	require.NoError(t, store.CreateSession(context.Background(), sess))

	bundle, err := agg.Build(context.Background(), sess, 0)
	require.NoError(t, err)

	require.Len(t, bundle.Recurring, 1)
	issue := bundle.Recurring[0]
	assert.Equal(t, complaints.CategoryEngine.Display(), issue.Category)
	assert.Equal(t, 2, issue.Count)
	assert.True(t, issue.First.Equal(t1))
	assert.True(t, issue.Last.Equal(t3))
}

func TestBuildTurnWindow(t *testing.T) {
	store := newMemStore()
	cmps := &fakeComplaints{byID: map[int64]complaints.Complaint{
		1: testComplaint(1, 10, complaints.CategoryEngine, time.Now()),
	}}
	agg := testAggregator(cmps, store)

	sess := &Session{ComplaintID: 1}
	require.NoError(t, store.CreateSession(context.Background(), sess))

	ctx := context.Background()
	for i := 0; i < bundleTurnLimit+4; i++ {
		role := ai.RoleUser
		if i%2 == 1 {
			role = ai.RoleAssistant
		}
		_, err := store.AppendTurn(ctx, sess.ID, role, "turn "+strings.Repeat("x", i+1))
		require.NoError(t, err)
	}

	bundle, err := agg.Build(ctx, sess, 0)
	require.NoError(t, err)

	require.Len(t, bundle.Turns, bundleTurnLimit)
	// oldest retained turn is the 5th appended (1-indexed), so its marker
	// has five x runes
	assert.Equal(t, "turn xxxxx", bundle.Turns[0].Content)
	assert.Equal(t, "turn "+strings.Repeat("x", bundleTurnLimit+4), bundle.Turns[len(bundle.Turns)-1].Content)
}

func TestRenderSections(t *testing.T) {
	store := newMemStore()
	c := testComplaint(1, 10, complaints.CategoryWheelsTires, time.Now())
	c.Crash = true
	cmps := &fakeComplaints{byID: map[int64]complaints.Complaint{1: c}}
	agg := testAggregator(cmps, store)

	sess := &Session{ComplaintID: 1}
	require.NoError(t, store.CreateSession(context.Background(), sess))

	bundle, err := agg.Build(context.Background(), sess, 0)
	require.NoError(t, err)

	text := bundle.Render()
	assert.Contains(t, text, "VEHICLE INFORMATION")
	assert.Contains(t, text, "CURRENT COMPLAINT (WHAT THEY'RE ASKING ABOUT NOW)")
	assert.Contains(t, text, "HISTORICAL COMPLAINTS")
	assert.Contains(t, text, "2018 Toyota Corolla")
	assert.Contains(t, text, "CRITICAL: This complaint involves a CRASH")
	assert.NotContains(t, text, "FIRE")
}

func TestVehicleHistoryText(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	cmps := &fakeComplaints{byID: map[int64]complaints.Complaint{
		1: testComplaint(1, 10, complaints.CategoryEngine, base),
		2: testComplaint(2, 10, complaints.CategoryEngine, base.Add(time.Hour)),
	}}
	agg := testAggregator(cmps, store)

	text, err := agg.VehicleHistoryText(context.Background(), 10)
	require.NoError(t, err)
	assert.Contains(t, text, "Vehicle History: 2018 Toyota Corolla")
	assert.Contains(t, text, "Total Complaints: 2")
	assert.Contains(t, text, "RECURRING ISSUES DETECTED:")
}

func TestVehicleHistoryTextEmpty(t *testing.T) {
	store := newMemStore()
	cmps := &fakeComplaints{byID: map[int64]complaints.Complaint{}}
	agg := testAggregator(cmps, store)

	text, err := agg.VehicleHistoryText(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "No previous complaints for this 2018 Toyota Corolla.", text)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", historyTextLen+10)
	got := truncate(long, historyTextLen)
	assert.Equal(t, historyTextLen+3, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))

	short := "fits"
	assert.Equal(t, short, truncate(short, historyTextLen))
}
