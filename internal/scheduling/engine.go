// Package scheduling coordinates routes offered on calendar dates and the
// links (riders) who join them.
//
// Three tables hold all state. routes and links are owned by RouteCatalog
// and JoinCoordinator respectively; calendar_entries ties them together and
// is only touched through CalendarIndex from inside their transactions.
//
// Duplicate checks and the inserts they guard run under a per-key lock and
// inside one transaction. Events are published after commit while the key
// lock is still held, which keeps per (route, date) delivery in commit order.
package scheduling

import (
	"context"
	"time"

	"gorm.io/gorm"

	"routelink/internal/events"
)

const DefaultTxTimeout = 5 * time.Second

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Clock     Clock
	Publisher events.Publisher
	TxTimeout time.Duration
}

// Engine bundles the scheduling components over one store.
type Engine struct {
	Sequencer *SlotSequencer
	Calendar  *CalendarIndex
	Catalog   *RouteCatalog
	Joins     *JoinCoordinator
}

func New(db *gorm.DB, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock(time.Local)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = DefaultTxTimeout
	}

	timeout := opTimeout(opts.TxTimeout)
	locks := newKeyLocks()
	seq := NewSlotSequencer(db, opts.TxTimeout)
	cal := &CalendarIndex{}
	joins := &JoinCoordinator{
		db:      db,
		cal:     cal,
		locks:   locks,
		clock:   opts.Clock,
		pub:     opts.Publisher,
		timeout: timeout,
	}
	catalog := &RouteCatalog{
		db:      db,
		seq:     seq,
		cal:     cal,
		riders:  joins,
		locks:   locks,
		clock:   opts.Clock,
		pub:     opts.Publisher,
		timeout: timeout,
	}
	return &Engine{Sequencer: seq, Calendar: cal, Catalog: catalog, Joins: joins}
}

// opTimeout bounds a store operation. The caller's cancellation is dropped so
// a disconnecting client cannot abort a transaction midway; only the timeout
// ends it.
type opTimeout time.Duration

func (t opTimeout) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	d := time.Duration(t)
	if d <= 0 {
		d = DefaultTxTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}
