// Package gormstore backs the directory collaborator interface with a
// GORM-managed relational store.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ store.DirectoryStore = (*Store)(nil)

// Open connects to the directory database and ensures the read-side
// schema exists.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("directory open: %w", err)
	}
	if err := db.AutoMigrate(&Person{}, &Business{}, &Institute{}, &Skill{}, &Job{}, &Course{}); err != nil {
		return nil, fmt.Errorf("directory migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle, used by tests.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ProfileIDOwner(ctx context.Context, collection store.EntityType, profileID string) (string, error) {
	db := s.db.WithContext(ctx)
	switch collection {
	case store.EntityPerson:
		var p Person
		if err := db.Select("id").Where("profile_id = ?", profileID).First(&p).Error; err != nil {
			return ownerErr(err)
		}
		return p.ID, nil
	case store.EntityBusiness:
		var b Business
		if err := db.Select("owner_id").Where("profile_id = ?", profileID).First(&b).Error; err != nil {
			return ownerErr(err)
		}
		return b.OwnerID, nil
	case store.EntityInstitute:
		var i Institute
		if err := db.Select("owner_id").Where("profile_id = ?", profileID).First(&i).Error; err != nil {
			return ownerErr(err)
		}
		return i.OwnerID, nil
	default:
		return "", fmt.Errorf("collection %q has no profile identifiers", collection)
	}
}

func ownerErr(err error) (string, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return "", fmt.Errorf("profile id probe: %w", err)
}

func (s *Store) Search(ctx context.Context, entity store.EntityType, query string, limit int) ([]protocol.Suggestion, error) {
	db := s.db.WithContext(ctx).Limit(limit)
	pattern := "%" + strings.ToLower(query) + "%"

	switch entity {
	case store.EntityPerson:
		var rows []Person
		err := db.Where("LOWER(full_name) LIKE ? OR LOWER(headline) LIKE ? OR LOWER(profile_id) LIKE ?",
			pattern, pattern, pattern).Find(&rows).Error
		if err != nil {
			return nil, searchErr(entity, err)
		}
		out := make([]protocol.Suggestion, 0, len(rows))
		for _, r := range rows {
			out = append(out, protocol.Suggestion{Type: string(entity), ID: r.ID, Text: r.FullName, Subtitle: r.Headline})
		}
		return out, nil
	case store.EntityBusiness:
		var rows []Business
		err := db.Where("LOWER(name) LIKE ? OR LOWER(industry) LIKE ? OR LOWER(location) LIKE ?",
			pattern, pattern, pattern).Find(&rows).Error
		if err != nil {
			return nil, searchErr(entity, err)
		}
		out := make([]protocol.Suggestion, 0, len(rows))
		for _, r := range rows {
			out = append(out, protocol.Suggestion{Type: string(entity), ID: r.ID, Text: r.Name, Subtitle: r.Industry})
		}
		return out, nil
	case store.EntityInstitute:
		var rows []Institute
		err := db.Where("LOWER(name) LIKE ? OR LOWER(kind) LIKE ? OR LOWER(location) LIKE ?",
			pattern, pattern, pattern).Find(&rows).Error
		if err != nil {
			return nil, searchErr(entity, err)
		}
		out := make([]protocol.Suggestion, 0, len(rows))
		for _, r := range rows {
			out = append(out, protocol.Suggestion{Type: string(entity), ID: r.ID, Text: r.Name, Subtitle: r.Kind})
		}
		return out, nil
	case store.EntitySkill:
		var rows []Skill
		err := db.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?",
			pattern, pattern).Find(&rows).Error
		if err != nil {
			return nil, searchErr(entity, err)
		}
		out := make([]protocol.Suggestion, 0, len(rows))
		for _, r := range rows {
			out = append(out, protocol.Suggestion{Type: string(entity), ID: r.ID, Text: r.Name, Subtitle: r.Category})
		}
		return out, nil
	case store.EntityJob:
		var rows []Job
		err := db.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ? OR LOWER(location) LIKE ?",
			pattern, pattern, pattern).Find(&rows).Error
		if err != nil {
			return nil, searchErr(entity, err)
		}
		out := make([]protocol.Suggestion, 0, len(rows))
		for _, r := range rows {
			out = append(out, protocol.Suggestion{Type: string(entity), ID: r.ID, Text: r.Title, Subtitle: r.Location})
		}
		return out, nil
	case store.EntityCourse:
		var rows []Course
		err := db.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ? OR LOWER(field) LIKE ?",
			pattern, pattern, pattern).Find(&rows).Error
		if err != nil {
			return nil, searchErr(entity, err)
		}
		out := make([]protocol.Suggestion, 0, len(rows))
		for _, r := range rows {
			out = append(out, protocol.Suggestion{Type: string(entity), ID: r.ID, Text: r.Title, Subtitle: r.Field})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", entity)
	}
}

func searchErr(entity store.EntityType, err error) error {
	return fmt.Errorf("%s search: %w", entity, err)
}
