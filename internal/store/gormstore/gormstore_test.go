package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/careerbox/presenced/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	// one database per test so fixtures never collide
	s, err := Open(filepath.Join(t.TempDir(), "directory.db"))
	require.NoError(t, err)

	db := s.db
	require.NoError(t, db.Create(&Person{ID: "p1", ProfileID: "johndoe", FullName: "John Doe", Headline: "Go Developer"}).Error)
	require.NoError(t, db.Create(&Person{ID: "p2", ProfileID: "janedoe", FullName: "Jane Doe", Headline: "Data Engineer"}).Error)
	require.NoError(t, db.Create(&Business{ID: "b1", OwnerID: "p2", ProfileID: "acme", Name: "Acme Corp", Industry: "Software", Location: "Cairo"}).Error)
	require.NoError(t, db.Create(&Institute{ID: "i1", OwnerID: "p1", ProfileID: "gotech", Name: "GoTech Institute", Kind: "training center"}).Error)
	require.NoError(t, db.Create(&Skill{ID: "s1", Name: "Go", Category: "Programming"}).Error)
	require.NoError(t, db.Create(&Job{ID: "j1", BusinessID: "b1", Title: "Go Engineer", Summary: "Build backend services", Location: "Remote"}).Error)
	require.NoError(t, db.Create(&Course{ID: "c1", InstituteID: "i1", Title: "Intro to Go", Field: "Programming"}).Error)
	return s
}

func TestProfileIDOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner, err := s.ProfileIDOwner(ctx, store.EntityPerson, "johndoe")
	require.NoError(t, err)
	assert.Equal(t, "p1", owner, "a person owns their own profile id")

	owner, err = s.ProfileIDOwner(ctx, store.EntityBusiness, "acme")
	require.NoError(t, err)
	assert.Equal(t, "p2", owner, "a business profile id belongs to the owning account")

	owner, err = s.ProfileIDOwner(ctx, store.EntityInstitute, "gotech")
	require.NoError(t, err)
	assert.Equal(t, "p1", owner)
}

func TestProfileIDOwnerFreeID(t *testing.T) {
	s := newTestStore(t)

	owner, err := s.ProfileIDOwner(context.Background(), store.EntityPerson, "nobody")
	require.NoError(t, err, "a missing record is a free id, not an error")
	assert.Empty(t, owner)
}

func TestProfileIDOwnerRejectsNonProfileCollections(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ProfileIDOwner(context.Background(), store.EntitySkill, "go")
	assert.Error(t, err)
}

func TestSearchMatchesAcrossColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// matches headline, not name
	hits, err := s.Search(ctx, store.EntityPerson, "go dev", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "John Doe", hits[0].Text)
	assert.Equal(t, "Go Developer", hits[0].Subtitle)
	assert.Equal(t, "person", hits[0].Type)

	hits, err = s.Search(ctx, store.EntityJob, "backend", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Go Engineer", hits[0].Text)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	hits, err := s.Search(context.Background(), store.EntityBusiness, "ACME", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Acme Corp", hits[0].Text)
}

func TestSearchHonorsLimit(t *testing.T) {
	s := newTestStore(t)

	hits, err := s.Search(context.Background(), store.EntityPerson, "doe", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchUnknownEntity(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), store.EntityType("country"), "x", 5)
	assert.Error(t, err)
}
