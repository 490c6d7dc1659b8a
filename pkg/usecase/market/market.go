// Package market fetches the market analytics tiles shown next to an accepted
// idea. Only the most recent fetch may publish its result.
package market

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/adapter"
	"github.com/m-mizutani/wrinkle/pkg/metrics"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrStaleFetch is returned by a fetch that was superseded by a newer one
	ErrStaleFetch = goerr.New("market fetch superseded by a newer request")
	// ErrNoKeywords is returned when nothing searchable is left in the idea
	ErrNoKeywords = goerr.New("no keywords in idea")
	// ErrQueryTooLarge is returned when a dry run exceeds the scan limit
	ErrQueryTooLarge = goerr.New("query exceeds scan limit")
)

const (
	queryMarketSize = "SELECT SUM(size_usd) AS size_usd FROM `%s.market_sizes` WHERE keyword IN UNNEST(@keywords)"

	queryGrowth = "SELECT year, AVG(interest) AS interest FROM `%s.search_trends` " +
		"WHERE keyword IN UNNEST(@keywords) GROUP BY year ORDER BY year"

	queryCompetitors = "SELECT COUNT(DISTINCT name) AS competitors FROM `%s.companies`, UNNEST(@keywords) AS kw " +
		"WHERE LOWER(description) LIKE CONCAT('%%', kw, '%%')"
)

// GrowthPoint is one year of the search interest trend
type GrowthPoint struct {
	Year     int     `json:"year"`
	Interest float64 `json:"interest"`
}

// Tiles is the data behind the dashboard
type Tiles struct {
	FetchID       uint64        `json:"fetchId"`
	Keywords      []string      `json:"keywords"`
	MarketSizeUSD float64       `json:"marketSizeUsd"`
	Growth        []GrowthPoint `json:"growth"`
	Competitors   int           `json:"competitors"`
}

// Dashboard runs tile queries against a BigQuery dataset
type Dashboard struct {
	bq       adapter.BigQuery
	dataset  string
	maxBytes int64
	metrics  *metrics.Metrics
	active   atomic.Uint64
}

// Option is a functional option for Dashboard
type Option func(*Dashboard)

// WithMaxBytes dry-runs every query and refuses ones scanning more than n bytes
func WithMaxBytes(n int64) Option {
	return func(d *Dashboard) {
		d.maxBytes = n
	}
}

// WithMetrics records stale fetches and query durations
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dashboard) {
		d.metrics = m
	}
}

// New creates a Dashboard. dataset is "project.dataset".
func New(bq adapter.BigQuery, dataset string, opts ...Option) *Dashboard {
	d := &Dashboard{
		bq:      bq,
		dataset: dataset,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch loads all tiles for idea. If another Fetch starts before this one
// finishes, this one returns ErrStaleFetch and its data is dropped.
func (d *Dashboard) Fetch(ctx context.Context, idea string) (*Tiles, error) {
	id := d.active.Add(1)
	logger := logging.From(ctx).With("fetch_id", id)

	keywords := Keywords(idea)
	if len(keywords) == 0 {
		return nil, goerr.Wrap(ErrNoKeywords, "cannot build market queries", goerr.V("idea", idea))
	}
	params := map[string]any{"keywords": keywords}

	tiles := &Tiles{FetchID: id, Keywords: keywords}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rows, err := d.query(ctx, "market_size", queryMarketSize, params)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			tiles.MarketSizeUSD = toFloat(rows[0]["size_usd"])
		}
		return nil
	})
	eg.Go(func() error {
		rows, err := d.query(ctx, "growth", queryGrowth, params)
		if err != nil {
			return err
		}
		for _, row := range rows {
			tiles.Growth = append(tiles.Growth, GrowthPoint{
				Year:     int(toFloat(row["year"])),
				Interest: toFloat(row["interest"]),
			})
		}
		return nil
	})
	eg.Go(func() error {
		rows, err := d.query(ctx, "competitors", queryCompetitors, params)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			tiles.Competitors = int(toFloat(rows[0]["competitors"]))
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if d.active.Load() != id {
		d.metrics.ObserveStale("market")
		logger.Info("dropping stale market fetch")
		return nil, goerr.Wrap(ErrStaleFetch, "newer fetch is active", goerr.V("fetch_id", id))
	}

	logger.Debug("market tiles fetched", "keywords", keywords, "competitors", tiles.Competitors)
	return tiles, nil
}

func (d *Dashboard) query(ctx context.Context, tile, template string, params map[string]any) ([]map[string]any, error) {
	q := fmt.Sprintf(template, d.dataset)

	if d.maxBytes > 0 {
		size, err := d.bq.DryRun(ctx, q, params)
		if err != nil {
			return nil, goerr.Wrap(err, "dry run failed", goerr.V("tile", tile))
		}
		if size > d.maxBytes {
			return nil, goerr.Wrap(ErrQueryTooLarge, "refusing to run tile query",
				goerr.V("tile", tile), goerr.V("bytes", size), goerr.V("limit", d.maxBytes))
		}
	}

	started := time.Now()
	rows, err := d.bq.Query(ctx, q, params)
	d.metrics.ObserveRemoteCall("bigquery_"+tile, time.Since(started).Seconds(), err)
	if err != nil {
		return nil, goerr.Wrap(err, "tile query failed", goerr.V("tile", tile))
	}
	return rows, nil
}

// toFloat converts BigQuery numeric cells. NULL and unknown types are 0.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}
