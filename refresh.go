package transit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lily-mara/transit-kindle/config"
	"github.com/lily-mara/transit-kindle/snapshot"
)

// FeedClient fetches the raw stop monitoring records for one agency,
// filtered to the given stops.
type FeedClient interface {
	Fetch(ctx context.Context, agency string, stopIDs []string) ([]snapshot.RawArrival, error)
}

// RefreshLoop periodically fetches every configured agency and writes
// the results into the snapshot store. It runs until Shutdown and never
// terminates on data-source failure: each agency's errors are logged and
// the loop moves on.
type RefreshLoop struct {
	client   FeedClient
	store    snapshot.Store
	queries  []config.StopQuery
	interval time.Duration
	logger   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRefreshLoop(
	client FeedClient,
	store snapshot.Store,
	queries []config.StopQuery,
	interval time.Duration,
	logger *slog.Logger,
) *RefreshLoop {
	if interval <= 0 {
		interval = 180 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshLoop{
		client:   client,
		store:    store,
		queries:  queries,
		interval: interval,
		logger:   logger.With(slog.String("component", "refresh")),
		stop:     make(chan struct{}),
	}
}

// Start launches the background loop. The first tick runs immediately so
// the cache is populated before the first scheduled interval elapses.
func (l *RefreshLoop) Start() {
	l.wg.Add(1)
	go l.run()
}

// Shutdown stops the loop and waits for any in-flight tick to finish.
// Safe to call more than once.
func (l *RefreshLoop) Shutdown() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	l.wg.Wait()
}

func (l *RefreshLoop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.RefreshOnce(context.Background())

	for {
		select {
		case <-l.stop:
			l.logger.Info("refresh loop exiting")
			return
		case <-ticker.C:
			l.RefreshOnce(context.Background())
		}
	}
}

// RefreshOnce runs a single tick: one fetch per agency, fanned out
// concurrently, joined before returning. At most one fetch per agency is
// ever in flight, since ticks don't overlap. A failed fetch or cache
// write leaves that agency's prior snapshot untouched and never aborts
// the other agencies.
func (l *RefreshLoop) RefreshOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, query := range l.queries {
		wg.Add(1)
		go func(query config.StopQuery) {
			defer wg.Done()
			l.refreshAgency(ctx, query)
		}(query)
	}
	wg.Wait()
}

func (l *RefreshLoop) refreshAgency(ctx context.Context, query config.StopQuery) {
	records, err := l.client.Fetch(ctx, query.Agency, query.Stops)
	if err != nil {
		l.logger.Error("fetching stop monitoring",
			slog.String("agency", query.Agency),
			slog.Any("error", err))
		return
	}

	l.logger.Debug("fetched stop monitoring",
		slog.String("agency", query.Agency),
		slog.Int("records", len(records)))

	if err := l.store.Write(ctx, query.Agency, records); err != nil {
		// A failed cache write must not fail the fetch cycle; that
		// tick just contributes nothing new for this agency.
		l.logger.Error("writing snapshot",
			slog.String("agency", query.Agency),
			slog.Any("error", err))
	}
}
