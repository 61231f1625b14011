package repo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/KNICEX/oi-radar/internal/entity"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrStoreWrite    = errors.New("alert store write failed")
	// ErrInvalidAlert and ErrDuplicateAlert wrap ErrStoreWrite failures that
	// retrying cannot fix.
	ErrInvalidAlert   = errors.New("invalid alert")
	ErrDuplicateAlert = errors.New("duplicate alert id")
)

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// AlertQuery filters a listing. Zero values disable a filter.
type AlertQuery struct {
	Symbol     string
	Verdict    *radar.Verdict
	MinVerdict radar.Verdict
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

type AlertRepo interface {
	Append(ctx context.Context, alert radar.Alert) error
	FindByID(ctx context.Context, id string) (radar.Alert, error)
	// Query lists alerts newest first, ties broken by id descending.
	Query(ctx context.Context, q AlertQuery) ([]radar.Alert, error)
	Count(ctx context.Context, q AlertQuery) (int64, error)
	// Recent returns the newest n alerts, oldest first.
	Recent(ctx context.Context, n int) ([]radar.Alert, error)
	// Prune removes alerts beyond the retention horizon or past the record cap.
	Prune(ctx context.Context) (int64, error)
}

type AlertRepoOption func(r *alertRepo)

// WithRetention hides alerts older than d from every read.
func WithRetention(d time.Duration) AlertRepoOption {
	return func(r *alertRepo) {
		r.retention = d
	}
}

func WithMaxRecords(n int) AlertRepoOption {
	return func(r *alertRepo) {
		r.maxRecords = n
	}
}

func WithRepoClock(now func() time.Time) AlertRepoOption {
	return func(r *alertRepo) {
		r.now = now
	}
}

type alertRepo struct {
	db         *gorm.DB
	retention  time.Duration
	maxRecords int
	now        func() time.Time
}

func NewAlertRepo(db *gorm.DB, opts ...AlertRepoOption) AlertRepo {
	r := &alertRepo{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *alertRepo) Append(ctx context.Context, alert radar.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStoreWrite, ErrInvalidAlert, err)
	}
	payload, err := alert.Marshal()
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrStoreWrite, alert.ID, err)
	}
	row := entity.Alert{
		Id:          alert.ID,
		Symbol:      alert.Symbol,
		Verdict:     int(alert.Verdict),
		Severity:    int(alert.Severity),
		Confidence:  alert.Confidence,
		CreatedAtMs: alert.CreatedAt.UnixMilli(),
		Payload:     string(payload),
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %w: %s", ErrStoreWrite, ErrDuplicateAlert, alert.ID)
	}
	return nil
}

func (r *alertRepo) FindByID(ctx context.Context, id string) (radar.Alert, error) {
	var row entity.Alert
	err := r.visible(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return radar.Alert{}, ErrAlertNotFound
	}
	if err != nil {
		return radar.Alert{}, err
	}
	return radar.UnmarshalAlert([]byte(row.Payload))
}

func (r *alertRepo) Query(ctx context.Context, q AlertQuery) ([]radar.Alert, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	limit = min(limit, MaxQueryLimit)

	var rows []entity.Alert
	err := r.filter(r.visible(ctx), q).
		Order("created_at_ms DESC").
		Order("id DESC").
		Limit(limit).
		Offset(max(q.Offset, 0)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

func (r *alertRepo) Count(ctx context.Context, q AlertQuery) (int64, error) {
	var total int64
	err := r.filter(r.visible(ctx).Model(&entity.Alert{}), q).Count(&total).Error
	return total, err
}

func (r *alertRepo) Recent(ctx context.Context, n int) ([]radar.Alert, error) {
	if n <= 0 {
		return []radar.Alert{}, nil
	}
	alerts, err := r.Query(ctx, AlertQuery{Limit: n})
	if err != nil {
		return nil, err
	}
	slices.Reverse(alerts)
	return alerts, nil
}

func (r *alertRepo) Prune(ctx context.Context) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.retention > 0 {
			res := tx.Where("created_at_ms < ?", r.horizon()).Delete(&entity.Alert{})
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		if r.maxRecords > 0 {
			res := tx.Exec(`DELETE FROM alerts WHERE id IN (
				SELECT id FROM alerts ORDER BY created_at_ms DESC, id DESC LIMIT -1 OFFSET ?)`, r.maxRecords)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return nil
	})
	return removed, err
}

func (r *alertRepo) horizon() int64 {
	return r.now().Add(-r.retention).UnixMilli()
}

// visible applies the retention horizon so rows awaiting pruning are never
// returned, whether or not Prune has run yet.
func (r *alertRepo) visible(ctx context.Context) *gorm.DB {
	tx := r.db.WithContext(ctx)
	if r.retention > 0 {
		tx = tx.Where("created_at_ms >= ?", r.horizon())
	}
	return tx
}

func (r *alertRepo) filter(tx *gorm.DB, q AlertQuery) *gorm.DB {
	if q.Symbol != "" {
		tx = tx.Where("symbol = ?", q.Symbol)
	}
	if q.Verdict != nil {
		tx = tx.Where("verdict = ?", int(*q.Verdict))
	}
	if q.MinVerdict > radar.VerdictNone {
		tx = tx.Where("verdict >= ?", int(q.MinVerdict))
	}
	if !q.Since.IsZero() {
		tx = tx.Where("created_at_ms >= ?", q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		tx = tx.Where("created_at_ms <= ?", q.Until.UnixMilli())
	}
	return tx
}

func decodeRows(rows []entity.Alert) ([]radar.Alert, error) {
	alerts := make([]radar.Alert, 0, len(rows))
	for _, row := range rows {
		a, err := radar.UnmarshalAlert([]byte(row.Payload))
		if err != nil {
			return nil, fmt.Errorf("decode alert %s: %w", row.Id, err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}
