package transit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lily-mara/transit-kindle/config"
	"github.com/lily-mara/transit-kindle/snapshot"
)

// Pipeline assembles arrival data for the configured stop queries. Reads
// are served entirely from the snapshot store; the pipeline's refresh
// loop keeps the store populated out of band.
type Pipeline struct {
	store       snapshot.Store
	queries     []config.StopQuery
	transformer *Transformer
	refresh     *RefreshLoop
}

func NewPipeline(client FeedClient, store snapshot.Store, cfg *config.Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:       store,
		queries:     cfg.Stops,
		transformer: NewTransformer(cfg.DestinationSubs),
		refresh:     NewRefreshLoop(client, store, cfg.Stops, cfg.RefreshInterval(), logger),
	}
}

// Start launches the background refresh loop.
func (p *Pipeline) Start() {
	p.refresh.Start()
}

// Shutdown stops the refresh loop and waits for in-flight work.
func (p *Pipeline) Shutdown() {
	p.refresh.Shutdown()
}

// RefreshOnce runs a single refresh tick synchronously.
func (p *Pipeline) RefreshOnce(ctx context.Context) {
	p.refresh.RefreshOnce(ctx)
}

// Load reads and transforms the snapshot for every configured query
// concurrently, and merges the results keyed by agency.
//
// An agency whose snapshot has never been populated is simply absent
// from the result. Any other per-agency failure fails the whole load,
// with the offending agency named; the caller owns graceful degradation.
func (p *Pipeline) Load(ctx context.Context) (StopData, error) {
	type result struct {
		arrivals AgencyArrivals
		err      error
	}

	results := make(chan result, len(p.queries))
	var wg sync.WaitGroup
	for _, query := range p.queries {
		wg.Add(1)
		go func(query config.StopQuery) {
			defer wg.Done()

			snap, err := p.store.Read(ctx, query.Agency)
			if errors.Is(err, snapshot.ErrNotFound) {
				return
			}
			if err != nil {
				results <- result{err: fmt.Errorf("reading snapshot for agency %s: %w", query.Agency, err)}
				return
			}

			arrivals, err := p.transformer.Transform(query, snap)
			if err != nil {
				results <- result{err: fmt.Errorf("transforming arrivals for agency %s: %w", query.Agency, err)}
				return
			}

			results <- result{arrivals: arrivals}
		}(query)
	}
	wg.Wait()
	close(results)

	data := StopData{}
	errs := []error{}
	for res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		data[res.arrivals.Agency] = res.arrivals
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return data, nil
}
