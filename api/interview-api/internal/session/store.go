// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package internal_session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/intervuai/pkg/commons"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store persists completed sessions and the single in-progress draft.
//
// The draft table holds at most one row at a time: SaveDraft supersedes any
// previous draft wholesale, and the row is removed on completion or explicit
// abandonment. Store failures must never corrupt in-memory interview state;
// callers on the autosave path log the error and retry on the next tick.
type Store interface {
	// SaveSession upserts a completed session keyed by its ID.
	SaveSession(ctx context.Context, s *Session) error

	// GetSession retrieves one session by ID.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns all saved sessions, newest first.
	ListSessions(ctx context.Context) ([]*Session, error)

	// DeleteSession removes a saved session. Deleting a missing session is
	// a no-op.
	DeleteSession(ctx context.Context, id string) error

	// SaveDraft replaces the current draft wholesale.
	SaveDraft(ctx context.Context, d *Draft) error

	// LoadDraft returns the resumable draft, or (nil, nil) when none exists.
	LoadDraft(ctx context.Context) (*Draft, error)

	// ClearDraft removes any stored draft. Clearing an empty table is a
	// no-op.
	ClearDraft(ctx context.Context) error
}

type sqliteStore struct {
	db     *gorm.DB
	logger commons.Logger
}

// Open opens (or creates) the sqlite database at dsn and migrates the
// session and draft tables.
func Open(dsn string, log commons.Logger) (Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&Session{}, &Draft{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}
	return NewStore(db, log), nil
}

// NewStore wraps an existing gorm handle. Used directly by tests.
func NewStore(db *gorm.DB, log commons.Logger) Store {
	return &sqliteStore{db: db, logger: log}
}

func (s *sqliteStore) SaveSession(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(sess).Error
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	s.logger.Infof("saved session: id=%s, role=%s, questions=%d",
		sess.ID, sess.Config.Role, len(sess.Questions))
	return nil
}

func (s *sqliteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		return nil, fmt.Errorf("session not found: %s: %w", id, err)
	}
	return &sess, nil
}

func (s *sqliteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *sqliteStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	s.logger.Debugf("deleted session: id=%s", id)
	return nil
}

// SaveDraft replaces whatever draft exists with d, in one transaction so a
// crash mid-save cannot leave two drafts behind.
func (s *sqliteStore) SaveDraft(ctx context.Context, d *Draft) error {
	d.SavedAt = time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Draft{}).Error; err != nil {
			return err
		}
		d.ID = 0
		return tx.Create(d).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save draft for session %s: %w", d.SessionID, err)
	}
	s.logger.Debugf("saved draft: session=%s, question=%d", d.SessionID, d.CurrentQuestion)
	return nil
}

func (s *sqliteStore) LoadDraft(ctx context.Context) (*Draft, error) {
	var d Draft
	err := s.db.WithContext(ctx).Order("saved_at DESC").First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return &d, nil
}

func (s *sqliteStore) ClearDraft(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&Draft{}).Error; err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	s.logger.Debugf("cleared draft")
	return nil
}
