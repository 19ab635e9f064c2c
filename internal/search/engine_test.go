package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// fakeDirectory serves canned per-entity results and counts Search
// calls.
type fakeDirectory struct {
	mu      sync.Mutex
	results map[store.EntityType][]protocol.Suggestion
	fail    map[store.EntityType]bool
	calls   int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		results: map[store.EntityType][]protocol.Suggestion{},
		fail:    map[store.EntityType]bool{},
	}
}

func (d *fakeDirectory) Search(ctx context.Context, entity store.EntityType, query string, limit int) ([]protocol.Suggestion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.fail[entity] {
		return nil, errors.New("collection unreachable")
	}
	return d.results[entity], nil
}

func (d *fakeDirectory) ProfileIDOwner(ctx context.Context, collection store.EntityType, profileID string) (string, error) {
	return "", nil
}

func (d *fakeDirectory) searchCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func suggestion(entity, text string) protocol.Suggestion {
	return protocol.Suggestion{Type: entity, ID: text, Text: text}
}

func TestSuggestShortQuerySkipsDirectory(t *testing.T) {
	dir := newFakeDirectory()
	eng := NewEngine(dir, nil, Config{}, newTestLogger())

	for _, q := range []string{"", "a", "  g  "} {
		got := eng.Suggest(context.Background(), q)
		assert.Empty(t, got)
	}
	assert.Zero(t, dir.searchCalls(), "below-minimum queries must not hit the directory")
}

func TestSuggestFansOutToAllTypes(t *testing.T) {
	dir := newFakeDirectory()
	dir.results[store.EntityPerson] = []protocol.Suggestion{suggestion("person", "golang dev")}
	dir.results[store.EntityJob] = []protocol.Suggestion{suggestion("job", "golang engineer")}
	eng := NewEngine(dir, nil, Config{}, newTestLogger())

	got := eng.Suggest(context.Background(), "golang")
	assert.Len(t, got, 2)
	assert.Equal(t, len(store.SearchTypes), dir.searchCalls())
}

func TestSuggestRanking(t *testing.T) {
	dir := newFakeDirectory()
	dir.results[store.EntitySkill] = []protocol.Suggestion{
		suggestion("skill", "a golang thing"),
		suggestion("skill", "Golang"),
		suggestion("skill", "golang basics"),
	}
	eng := NewEngine(dir, nil, Config{}, newTestLogger())

	got := eng.Suggest(context.Background(), "golang")
	require.Len(t, got, 3)
	assert.Equal(t, "Golang", got[0].Text, "exact match outranks prefix")
	assert.Equal(t, "golang basics", got[1].Text)
	assert.Equal(t, "a golang thing", got[2].Text)
}

func TestSuggestTotalCap(t *testing.T) {
	dir := newFakeDirectory()
	for _, entity := range store.SearchTypes {
		var part []protocol.Suggestion
		for i := 0; i < 5; i++ {
			part = append(part, suggestion(string(entity), string(entity)+"-result"))
		}
		dir.results[entity] = part
	}
	eng := NewEngine(dir, nil, Config{}, newTestLogger())

	got := eng.Suggest(context.Background(), "result")
	assert.Len(t, got, 10)
}

func TestSuggestDegradesOnPartialFailure(t *testing.T) {
	dir := newFakeDirectory()
	dir.results[store.EntityPerson] = []protocol.Suggestion{suggestion("person", "golang dev")}
	dir.fail[store.EntityJob] = true
	dir.fail[store.EntityCourse] = true
	eng := NewEngine(dir, nil, Config{}, newTestLogger())

	got := eng.Suggest(context.Background(), "golang")
	require.Len(t, got, 1)
	assert.Equal(t, "golang dev", got[0].Text)
}

func TestRankAlphabeticalWithinTier(t *testing.T) {
	items := []protocol.Suggestion{
		suggestion("skill", "zeta query"),
		suggestion("skill", "alpha query"),
		suggestion("skill", "queryB"),
		suggestion("skill", "queryA"),
	}
	ranked := Rank(items, "query")
	assert.Equal(t, "queryA", ranked[0].Text)
	assert.Equal(t, "queryB", ranked[1].Text)
	assert.Equal(t, "alpha query", ranked[2].Text)
	assert.Equal(t, "zeta query", ranked[3].Text)
}
