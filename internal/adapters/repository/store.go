// Package repository persists definitions, templates, results and recipients
// in a relational database through gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/pkg/logger"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Store reads award inputs and upserts recipients.
type Store struct {
	db          *gorm.DB
	logger      logger.Logger
	autoMigrate bool
}

// Open connects to the database and, unless disabled, migrates the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3":
		if err := ensureSQLiteDirectory(dsn); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	return New(ctx, db, opts...)
}

// New wraps an existing connection.
func New(ctx context.Context, db *gorm.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, logger: logger.Nop(), autoMigrate: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.autoMigrate {
		if err := s.db.WithContext(ctx).AutoMigrate(models()...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	s.logger.Info(ctx, "store ready", logger.String("dialect", db.Dialector.Name()))
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func ensureSQLiteDirectory(dsn string) error {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" || strings.Contains(candidate, ":memory:") {
		return nil
	}
	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %q: %w", dir, err)
	}
	return nil
}

// ActiveDefinitions returns active tiers ordered by group then descending threshold.
func (s *Store) ActiveDefinitions(ctx context.Context) ([]model.Definition, error) {
	var rows []DefinitionRow
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("group_name asc").
		Order("competition_type asc").
		Order("threshold_value desc").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	out := make([]model.Definition, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// Templates returns all active templates.
func (s *Store) Templates(ctx context.Context) ([]model.Template, error) {
	var rows []TemplateRow
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	out := make([]model.Template, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// TemplateByKey returns one template.
func (s *Store) TemplateByKey(ctx context.Context, key string) (model.Template, error) {
	if key == "" {
		return model.Template{}, fmt.Errorf("%w: template with empty key", ErrNotFound)
	}
	var row TemplateRow
	if err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Template{}, fmt.Errorf("%w: template %s", ErrNotFound, key)
		}
		return model.Template{}, fmt.Errorf("query template: %w", err)
	}
	return row.toDomain(), nil
}

// Results returns every result with a competitor and a score, best first.
func (s *Store) Results(ctx context.Context) ([]model.CompetitionResult, error) {
	var rows []ResultRow
	err := s.db.WithContext(ctx).
		Where("competitor_id IS NOT NULL AND competitor_id <> '' AND score IS NOT NULL").
		Order("score desc").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	out := make([]model.CompetitionResult, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// FindRecipient returns the award a competitor holds in group, if any.
func (s *Store) FindRecipient(ctx context.Context, competitorID, group string) (model.Recipient, bool, error) {
	var row RecipientRow
	err := s.db.WithContext(ctx).
		Where("competitor_id = ? AND group_name = ?", competitorID, group).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Recipient{}, false, nil
		}
		return model.Recipient{}, false, fmt.Errorf("query recipient: %w", err)
	}
	return row.toDomain(), true, nil
}

// UpsertRecipient inserts r or, when the competitor already holds an award in
// the group, updates that row in place. The stored row is returned; its ID is
// the original one on update.
func (s *Store) UpsertRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error) {
	row := recipientRow(r)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "competitor_id"}, {Name: "group_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"achievement_id", "meca_id", "achieved_value", "achieved_at",
			"competition_result_id", "event_id", "season_id",
			"image_url", "image_generated_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return model.Recipient{}, fmt.Errorf("upsert recipient: %w", err)
	}

	saved, ok, err := s.FindRecipient(ctx, r.CompetitorID, r.Group)
	if err != nil {
		return model.Recipient{}, err
	}
	if !ok {
		return model.Recipient{}, fmt.Errorf("%w: recipient vanished after upsert", ErrNotFound)
	}
	return saved, nil
}

// RecipientByID returns one award joined with its definition.
func (s *Store) RecipientByID(ctx context.Context, id string) (model.Achievement, error) {
	var rows []RecipientRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return model.Achievement{}, fmt.Errorf("query recipient: %w", err)
	}
	out, err := s.achievements(ctx, rows)
	if err != nil {
		return model.Achievement{}, err
	}
	if len(out) == 0 {
		return model.Achievement{}, fmt.Errorf("%w: recipient %s", ErrNotFound, id)
	}
	return out[0], nil
}

// AchievementsForCompetitor lists a competitor's awards by group.
func (s *Store) AchievementsForCompetitor(ctx context.Context, competitorID string) ([]model.Achievement, error) {
	var rows []RecipientRow
	err := s.db.WithContext(ctx).
		Where("competitor_id = ?", competitorID).
		Order("group_name asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	return s.achievements(ctx, rows)
}

// RecipientsMissingImage lists awards that have no stored image.
func (s *Store) RecipientsMissingImage(ctx context.Context) ([]model.Achievement, error) {
	var rows []RecipientRow
	err := s.db.WithContext(ctx).
		Where("image_url IS NULL OR image_url = ''").
		Order("competitor_id asc").
		Order("group_name asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	return s.achievements(ctx, rows)
}

// achievements joins recipients with their definitions. Recipients whose
// definition has been deleted are dropped.
func (s *Store) achievements(ctx context.Context, rows []RecipientRow) ([]model.Achievement, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.AchievementID)
	}
	var defs []DefinitionRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	byID := make(map[string]DefinitionRow, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	out := make([]model.Achievement, 0, len(rows))
	for _, r := range rows {
		d, ok := byID[r.AchievementID]
		if !ok {
			s.logger.Warn(ctx, "recipient references missing definition",
				logger.String("recipient", r.ID), logger.String("achievement", r.AchievementID))
			continue
		}
		out = append(out, achievement(r, d))
	}
	return out, nil
}

// SaveDefinitions inserts or replaces definition rows.
func (s *Store) SaveDefinitions(ctx context.Context, rows []DefinitionRow) error {
	return s.save(ctx, "definitions", &rows, len(rows))
}

// SaveTemplates inserts or replaces template rows.
func (s *Store) SaveTemplates(ctx context.Context, rows []TemplateRow) error {
	return s.save(ctx, "templates", &rows, len(rows))
}

// SaveResults inserts or replaces result rows.
func (s *Store) SaveResults(ctx context.Context, rows []ResultRow) error {
	return s.save(ctx, "results", &rows, len(rows))
}

func (s *Store) save(ctx context.Context, what string, rows any, n int) error {
	if n == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rows).Error; err != nil {
		return fmt.Errorf("save %s: %w", what, err)
	}
	return nil
}
