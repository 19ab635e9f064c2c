// Package search fans a partial query out across the directory
// collections, then merges, ranks and truncates the results.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/careerbox/presenced/internal/metrics"
	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
)

type Config struct {
	MinQueryLength int
	PerTypeLimit   int
	TotalLimit     int
}

func (c *Config) defaults() {
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = 2
	}
	if c.PerTypeLimit <= 0 {
		c.PerTypeLimit = 5
	}
	if c.TotalLimit <= 0 {
		c.TotalLimit = 10
	}
}

type Engine struct {
	directory store.DirectoryStore
	trending  store.TrendingLog
	config    Config
	logger    *slog.Logger
}

func NewEngine(directory store.DirectoryStore, trending store.TrendingLog, config Config, logger *slog.Logger) *Engine {
	config.defaults()
	return &Engine{
		directory: directory,
		trending:  trending,
		config:    config,
		logger:    logger.With(slog.String("component", "search")),
	}
}

// Suggest fans the query out to every entity type in parallel. A
// sub-search failing contributes an empty slice; queries shorter than
// the minimum return immediately without touching the directory.
func (e *Engine) Suggest(ctx context.Context, query string) []protocol.Suggestion {
	query = strings.TrimSpace(query)
	if len(query) < e.config.MinQueryLength {
		return []protocol.Suggestion{}
	}

	results := make([][]protocol.Suggestion, len(store.SearchTypes))
	var wg sync.WaitGroup
	for i, entity := range store.SearchTypes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found, err := e.directory.Search(ctx, entity, query, e.config.PerTypeLimit)
			if err != nil {
				metrics.SearchDegradedTotal.Inc()
				e.logger.Warn("sub-search failed, degrading",
					slog.String("entity", string(entity)),
					slog.Any("error", err),
				)
				return
			}
			results[i] = found
		}()
	}
	wg.Wait()

	var merged []protocol.Suggestion
	for _, part := range results {
		merged = append(merged, part...)
	}
	ranked := Rank(merged, query)
	if len(ranked) > e.config.TotalLimit {
		ranked = ranked[:e.config.TotalLimit]
	}

	e.recordTrending(query)
	return ranked
}

// Rank orders suggestions: exact case-insensitive matches first, then
// prefix matches, then the remainder alphabetically.
func Rank(items []protocol.Suggestion, query string) []protocol.Suggestion {
	q := strings.ToLower(query)
	tier := func(s protocol.Suggestion) int {
		text := strings.ToLower(s.Text)
		switch {
		case text == q:
			return 0
		case strings.HasPrefix(text, q):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := tier(items[i]), tier(items[j])
		if ti != tj {
			return ti < tj
		}
		return strings.ToLower(items[i].Text) < strings.ToLower(items[j].Text)
	})
	return items
}

// recordTrending logs the query for analytics. Fire-and-forget: it
// runs detached from the request context and can never block or fail
// the suggestion response.
func (e *Engine) recordTrending(query string) {
	if e.trending == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.trending.RecordQuery(ctx, query); err != nil {
			e.logger.Debug("trending record failed", slog.Any("error", err))
		}
	}()
}
