package scheduling

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"routelink/internal/models"
	"routelink/internal/testutil"
)

const today = "2025-02-20"

type fixture struct {
	db     *gorm.DB
	engine *Engine
	events *testutil.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, Options{})
}

// newFixtureWith fills in the fixed clock and the event recorder.
func newFixtureWith(t *testing.T, opts Options) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	rec := &testutil.Recorder{}
	opts.Clock = testutil.FixedClock(today)
	opts.Publisher = rec
	return fixture{db: db, events: rec, engine: New(db, opts)}
}

// held reports how many goroutines hold or wait on key.
func (k *keyLocks) held(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if l, ok := k.locks[key]; ok {
		return l.refs
	}
	return 0
}

// storeHook runs a function once, from inside the next matching store call.
type storeHook struct {
	table string
	armed atomic.Bool
	fn    func()
}

func (h *storeHook) arm(fn func()) {
	h.fn = fn
	h.armed.Store(true)
}

func (h *storeHook) run(tx *gorm.DB) {
	if tx.Statement.Table == h.table && h.armed.CompareAndSwap(true, false) {
		h.fn()
	}
}

// afterQuery hooks the read callbacks of table.
func afterQuery(t *testing.T, db *gorm.DB, table string) *storeHook {
	t.Helper()
	h := &storeHook{table: table}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("routelink:test_after_query", h.run))
	return h
}

// afterCreate hooks the insert callbacks of table.
func afterCreate(t *testing.T, db *gorm.DB, table string) *storeHook {
	t.Helper()
	h := &storeHook{table: table}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("routelink:test_after_create", h.run))
	return h
}

func strptr(s string) *string { return &s }

func (f fixture) createRoute(t *testing.T, date, endPoint, at, transport string) models.DatedRoute {
	t.Helper()
	in := RouteInput{Date: date, EndPoint: endPoint, TransportType: transport}
	if at != "" {
		in.Time = strptr(at)
	}
	r, err := f.engine.Catalog.CreateRoute(context.Background(), in)
	require.NoError(t, err)
	return r
}

func rider(name, phone, drop string) RiderInput {
	return RiderInput{
		Name:       name,
		Gender:     "F",
		DropPoint:  drop,
		Phone:      phone,
		CourseYear: "2",
		Branch:     "CSE",
	}
}
