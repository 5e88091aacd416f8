package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/store"
)

// ---- fakes ----

type statusCall struct {
	id     int64
	status domain.Status
	errMsg string
}

type fakeStore struct {
	mu          sync.Mutex
	targets     []domain.Target
	listErr     error
	statusCalls []statusCall
	slotsCalls  []int
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) ListTargets(ctx context.Context) ([]domain.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Target, len(f.targets))
	copy(out, f.targets)
	return out, nil
}

func (f *fakeStore) GetTarget(ctx context.Context, id int64) (*domain.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.targets {
		if f.targets[i].ID == id {
			t := f.targets[i]
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) AddTarget(ctx context.Context, p domain.AddTargetPayload) (int64, error) {
	return 0, errors.New("not used")
}

func (f *fakeStore) DeleteTarget(ctx context.Context, id int64) error {
	return errors.New("not used")
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id int64, status domain.Status, ts int64, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{id: id, status: status, errMsg: errMsg})
	for i := range f.targets {
		if f.targets[i].ID == id {
			f.targets[i].LastStatus = status
		}
	}
	return nil
}

func (f *fakeStore) SetLastSlots(ctx context.Context, id int64, slots int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotsCalls = append(f.slotsCalls, slots)
	for i := range f.targets {
		if f.targets[i].ID == id {
			v := slots
			f.targets[i].LastSlots = &v
		}
	}
	return nil
}

func (f *fakeStore) ListEvents(ctx context.Context, targetID int64, limit int) ([]domain.Event, error) {
	return nil, nil
}

func (f *fakeStore) statuses() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statusCall, len(f.statusCalls))
	copy(out, f.statusCalls)
	return out
}

// scriptFetcher returns scripted bodies in order, repeating the last
// one once the script is exhausted.
type scriptFetcher struct {
	mu     sync.Mutex
	bodies []string
	errs   []error
	i      int
	calls  int
}

func (s *scriptFetcher) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	i := s.i
	if i >= len(s.bodies) {
		i = len(s.bodies) - 1
	}
	s.i++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.bodies[i], nil
}

type alertRec struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (a *alertRec) notify(al domain.Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, al)
}

func (a *alertRec) all() []domain.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Alert, len(a.alerts))
	copy(out, a.alerts)
	return out
}

func testConfig() Config {
	return Config{
		IntervalFloor: 10 * time.Millisecond,
		PaceDelay:     time.Millisecond,
		DebounceDelay: time.Millisecond,
		Backoff:       5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func target(id int64, last domain.Status, lastSlots *int) domain.Target {
	return domain.Target{
		ID:         id,
		Label:      "CSO Test",
		URL:        "https://ffecompet.ffe.com/concours/1",
		LastStatus: last,
		LastSlots:  lastSlots,
	}
}

func intp(v int) *int { return &v }

// ---- tests ----

func TestEngine_OpenTransitionFiresOnce(t *testing.T) {
	st := &fakeStore{targets: []domain.Target{target(1, domain.StatusClosed, nil)}}
	f := &scriptFetcher{bodies: []string{"Engagement ouvert"}}
	rec := &alertRec{}

	e := New(zap.NewNop(), st, f, rec.notify, testConfig())
	e.Start()
	defer e.Stop()

	// At least two full polls so we can see the alert does not repeat.
	waitFor(t, func() bool { return len(st.statuses()) >= 2 })
	e.Stop()

	calls := st.statuses()
	for _, c := range calls {
		if c.status != domain.StatusOpen {
			t.Fatalf("want OPEN persisted, got %+v", c)
		}
	}
	alerts := rec.all()
	if len(alerts) != 1 {
		t.Fatalf("want exactly one opened alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Kind != domain.AlertOpened || a.TargetID != 1 || a.Label != "CSO Test" {
		t.Fatalf("unexpected alert %+v", a)
	}
}

func TestEngine_DebounceSecondSampleWins(t *testing.T) {
	st := &fakeStore{targets: []domain.Target{target(1, domain.StatusClosed, nil)}}
	// First fetch claims open, confirmation says closed.
	f := &scriptFetcher{bodies: []string{"Engagement ouvert", "Engagement fermé"}}
	rec := &alertRec{}

	e := New(zap.NewNop(), st, f, rec.notify, testConfig())
	e.Start()
	waitFor(t, func() bool { return len(st.statuses()) >= 1 })
	e.Stop()

	if got := st.statuses()[0].status; got != domain.StatusClosed {
		t.Fatalf("want debounced CLOSED, got %s", got)
	}
	if len(rec.all()) != 0 {
		t.Fatalf("no alert expected, got %+v", rec.all())
	}
}

func TestEngine_SlotsFreedEdge(t *testing.T) {
	st := &fakeStore{targets: []domain.Target{target(1, domain.StatusFull, intp(0))}}
	// Page no longer full: one slot freed up.
	f := &scriptFetcher{bodies: []string{"Liste d'attente — engagés 59 / 60"}}
	rec := &alertRec{}

	e := New(zap.NewNop(), st, f, rec.notify, testConfig())
	e.Start()
	waitFor(t, func() bool { return len(st.statuses()) >= 2 })
	e.Stop()

	alerts := rec.all()
	if len(alerts) != 1 {
		t.Fatalf("want exactly one slots-freed alert, got %d", len(alerts))
	}
	if alerts[0].Kind != domain.AlertSlotsFreed {
		t.Fatalf("unexpected alert kind %s", alerts[0].Kind)
	}
	st.mu.Lock()
	slots := append([]int(nil), st.slotsCalls...)
	st.mu.Unlock()
	if len(slots) == 0 || slots[0] != 1 {
		t.Fatalf("want persisted slots 1, got %v", slots)
	}
}

func TestEngine_NoSlotsAlertWithoutZeroEdge(t *testing.T) {
	st := &fakeStore{targets: []domain.Target{target(1, domain.StatusFull, intp(2))}}
	f := &scriptFetcher{bodies: []string{"complet engagés 55 / 60"}}
	rec := &alertRec{}

	e := New(zap.NewNop(), st, f, rec.notify, testConfig())
	e.Start()
	waitFor(t, func() bool { return len(st.statuses()) >= 1 })
	e.Stop()

	if len(rec.all()) != 0 {
		t.Fatalf("2 -> 5 must not alert, got %+v", rec.all())
	}
}

func TestEngine_TransportErrorPersistsErrorStatus(t *testing.T) {
	st := &fakeStore{targets: []domain.Target{target(1, domain.StatusClosed, nil)}}
	f := &scriptFetcher{
		bodies: []string{""},
		errs:   []error{errors.New("http: connection refused")},
	}
	rec := &alertRec{}

	e := New(zap.NewNop(), st, f, rec.notify, testConfig())
	e.Start()
	waitFor(t, func() bool { return len(st.statuses()) >= 1 })
	e.Stop()

	c := st.statuses()[0]
	if c.status != domain.StatusError || c.errMsg != "http: connection refused" {
		t.Fatalf("want ERROR with message, got %+v", c)
	}
	if len(rec.all()) != 0 {
		t.Fatalf("errors must not alert, got %+v", rec.all())
	}
}

func TestEngine_StoreErrorRetriesWithoutExit(t *testing.T) {
	st := &fakeStore{listErr: errors.New("disk i/o error")}
	f := &scriptFetcher{bodies: []string{""}}

	e := New(zap.NewNop(), st, f, nil, testConfig())
	e.Start()
	time.Sleep(30 * time.Millisecond)
	if !e.IsRunning() {
		t.Fatal("loop must survive store failures")
	}

	// Store recovers; the loop picks up targets on the next pass.
	st.mu.Lock()
	st.listErr = nil
	st.targets = []domain.Target{target(1, domain.StatusClosed, nil)}
	st.mu.Unlock()

	waitFor(t, func() bool { return len(st.statuses()) >= 1 })
	e.Stop()
}

func TestEngine_StopHaltsWrites(t *testing.T) {
	st := &fakeStore{targets: []domain.Target{target(1, domain.StatusClosed, nil)}}
	f := &scriptFetcher{bodies: []string{"fermé"}}

	e := New(zap.NewNop(), st, f, nil, testConfig())
	e.Start()
	waitFor(t, func() bool { return len(st.statuses()) >= 1 })
	e.Stop()

	if e.IsRunning() {
		t.Fatal("want stopped")
	}
	n := len(st.statuses())
	time.Sleep(50 * time.Millisecond)
	if got := len(st.statuses()); got != n {
		t.Fatalf("writes continued after Stop: %d -> %d", n, got)
	}
}

func TestEngine_StartIsIdempotent(t *testing.T) {
	st := &fakeStore{}
	e := New(zap.NewNop(), st, &scriptFetcher{bodies: []string{""}}, nil, testConfig())

	e.Start()
	e.Start()
	if !e.IsRunning() {
		t.Fatal("want running")
	}
	e.Stop()
	if e.IsRunning() {
		t.Fatal("want stopped")
	}

	// A fresh Start after Stop works.
	e.Start()
	if !e.IsRunning() {
		t.Fatal("want running again")
	}
	e.Stop()
}

func TestEngine_EmptyHTMLSkipsSlotExtraction(t *testing.T) {
	st := &fakeStore{targets: []domain.Target{target(1, domain.StatusClosed, intp(0))}}
	f := &scriptFetcher{
		bodies: []string{""},
		errs:   []error{errors.New("HTTP 503 Service Unavailable")},
	}
	rec := &alertRec{}

	e := New(zap.NewNop(), st, f, rec.notify, testConfig())
	e.Start()
	waitFor(t, func() bool { return len(st.statuses()) >= 1 })
	e.Stop()

	st.mu.Lock()
	slotsCalls := len(st.slotsCalls)
	st.mu.Unlock()
	if slotsCalls != 0 {
		t.Fatalf("no HTML retained, slots must not be written (got %d calls)", slotsCalls)
	}
	if len(rec.all()) != 0 {
		t.Fatalf("no alert expected, got %+v", rec.all())
	}
}
