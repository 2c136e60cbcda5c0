package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetcore/internal/repositories"
	"fleetcore/internal/utils"

	"github.com/sirupsen/logrus"
)

// LedgerJobTimeout bounds a single ledger sync attempt.
const LedgerJobTimeout = 10 * time.Second

// LedgerEvent asks for the ledger entry of one originating record to be brought up to date.
type LedgerEvent struct {
	Kind      repositories.RefKind
	RefID     int64
	OrgID     int64
	RequestID string
}

// LedgerPublisher accepts ledger events without blocking the caller.
type LedgerPublisher interface {
	Publish(ev LedgerEvent)
}

// LedgerHandler is the idempotent consumer of ledger events.
type LedgerHandler interface {
	Handle(ctx context.Context, ev LedgerEvent) error
}

// SyncPublisher handles events inline; used where no dispatcher runs (tests, CLI tools).
type SyncPublisher struct {
	Handler LedgerHandler
}

func (p SyncPublisher) Publish(ev LedgerEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), LedgerJobTimeout)
	defer cancel()
	if err := p.Handler.Handle(ctx, ev); err != nil {
		utils.LogWarn(ev.RequestID, "ledger", "sync_failed", fmt.Sprintf("%s=%d: %v", ev.Kind, ev.RefID, err))
	}
}

// LedgerDispatcher runs ledger syncs on a small worker pool with retries.
// Events that still fail, or that arrive while the queue is full, are left for
// the repairer.
type LedgerDispatcher struct {
	Handler     LedgerHandler
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration

	queue  chan LedgerEvent
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewLedgerDispatcher(handler LedgerHandler, workers, queueSize, maxAttempts int) *LedgerDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &LedgerDispatcher{
		Handler:     handler,
		Workers:     workers,
		MaxAttempts: maxAttempts,
		BaseBackoff: 200 * time.Millisecond,
		queue:       make(chan LedgerEvent, queueSize),
	}
}

func (d *LedgerDispatcher) Start() {
	for i := 0; i < d.Workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	logrus.WithFields(logrus.Fields{"workers": d.Workers, "queue": cap(d.queue)}).Info("ledger dispatcher started")
}

// Stop drains queued events and waits for in-flight ones.
func (d *LedgerDispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	logrus.Info("ledger dispatcher stopped")
}

func (d *LedgerDispatcher) Publish(ev LedgerEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		utils.LogWarn(ev.RequestID, "ledger", "dispatcher_closed", fmt.Sprintf("%s=%d dropped", ev.Kind, ev.RefID))
		return
	}
	select {
	case d.queue <- ev:
	default:
		utils.LogWarn(ev.RequestID, "ledger", "queue_full", fmt.Sprintf("%s=%d deferred to repair", ev.Kind, ev.RefID))
	}
}

func (d *LedgerDispatcher) work(n int) {
	defer d.wg.Done()
	for ev := range d.queue {
		d.process(ev)
	}
	logrus.WithField("worker", n).Debug("ledger worker exited")
}

func (d *LedgerDispatcher) process(ev LedgerEvent) {
	backoff := d.BaseBackoff
	for attempt := 1; attempt <= d.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), LedgerJobTimeout)
		err := d.Handler.Handle(ctx, ev)
		cancel()
		if err == nil {
			return
		}
		logrus.WithFields(logrus.Fields{
			"request_id": ev.RequestID,
			"module":     "ledger",
			"ref":        string(ev.Kind),
			"ref_id":     ev.RefID,
			"attempt":    attempt,
		}).WithError(err).Warn("ledger sync failed")

		if attempt == d.MaxAttempts {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	utils.LogWarn(ev.RequestID, "ledger", "sync_gave_up", fmt.Sprintf("%s=%d after %d attempts", ev.Kind, ev.RefID, d.MaxAttempts))
}

// LedgerRepairer finds reservations whose ledger entry is missing or stale and syncs them.
type LedgerRepairer struct {
	Reservations  repositories.ReservationRepo
	Ledger        LedgerService
	CheckInterval time.Duration
	BatchSize     int

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewLedgerRepairer(reservations repositories.ReservationRepo, ledger LedgerService, interval time.Duration) *LedgerRepairer {
	return &LedgerRepairer{
		Reservations:  reservations,
		Ledger:        ledger,
		CheckInterval: interval,
		BatchSize:     200,
	}
}

// RepairMissing re-syncs every reservation whose transaction is missing or out of line
// with it, covering events the dispatcher dropped. It returns how many were fixed.
func (r *LedgerRepairer) RepairMissing(ctx context.Context) (int, error) {
	ids, err := r.Reservations.ListLedgerOutOfSync(ctx, nil, r.BatchSize)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, id := range ids {
		jobCtx, cancel := context.WithTimeout(ctx, LedgerJobTimeout)
		err := r.Ledger.SyncReservation(jobCtx, nil, id)
		cancel()
		if err != nil {
			utils.LogWarn("", "ledger", "repair_failed", fmt.Sprintf("reservation_id=%d: %v", id, err))
			continue
		}
		fixed++
	}
	if len(ids) > 0 {
		utils.LogEvent("", "ledger", "repair", fmt.Sprintf("found=%d fixed=%d", len(ids), fixed))
	}
	return fixed, nil
}

// Start runs RepairMissing now and then every CheckInterval. A zero interval disables it.
func (r *LedgerRepairer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CheckInterval <= 0 {
		logrus.Info("ledger repairer disabled")
		return
	}
	if r.ticker != nil {
		return
	}
	r.ticker = time.NewTicker(r.CheckInterval)
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.run(r.ticker, r.stop)
	logrus.WithField("interval", r.CheckInterval.String()).Info("ledger repairer started")
}

func (r *LedgerRepairer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ticker != nil {
		r.ticker.Stop()
		close(r.stop)
		r.wg.Wait()
		r.ticker = nil
		logrus.Info("ledger repairer stopped")
	}
}

func (r *LedgerRepairer) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer r.wg.Done()

	r.tick()
	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-stop:
			return
		}
	}
}

func (r *LedgerRepairer) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.CheckInterval)
	defer cancel()
	if _, err := r.RepairMissing(ctx); err != nil {
		logrus.WithError(err).Warn("ledger repair pass failed")
	}
}
