package database

import (
	"time"

	"github.com/QwQ-dev/LiveStatus/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles the indicator row and the failure log
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveIndicator overwrites the single indicator row
func (r *Repository) SaveIndicator(message string, pid int) error {
	row := models.Indicator{ID: models.IndicatorID, Message: message, PID: pid}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "pid", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to save indicator")
	}
	return nil
}

// GetIndicator returns the indicator row, or nil if nothing was shown yet
func (r *Repository) GetIndicator() (*models.Indicator, error) {
	var row models.Indicator
	result := r.db.First(&row, models.IndicatorID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get indicator")
	}
	return &row, nil
}

// ClearIndicator removes the indicator row
func (r *Repository) ClearIndicator() error {
	result := r.db.Delete(&models.Indicator{}, models.IndicatorID)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear indicator")
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	if errorLog.Timestamp.IsZero() {
		errorLog.Timestamp = time.Now()
	}
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentErrors returns up to limit failures, newest first
func (r *Repository) RecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// CountErrors returns the number of stored failures
func (r *Repository) CountErrors() (int64, error) {
	var count int64
	result := r.db.Model(&models.ErrorLog{}).Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count error logs")
	}
	return count, nil
}

// PruneErrors deletes failures older than before and all but the newest
// keep rows
func (r *Repository) PruneErrors(before time.Time, keep int) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.ErrorLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old error logs")
	}
	deleted := result.RowsAffected

	newest := r.db.Model(&models.ErrorLog{}).Select("id").Order("timestamp DESC, id DESC").Limit(keep)
	result = r.db.Where("id NOT IN (?)", newest).Delete(&models.ErrorLog{})
	if result.Error != nil {
		return deleted, errors.Wrap(result.Error, "failed to trim error logs")
	}
	return deleted + result.RowsAffected, nil
}

// FailureSummarySince groups failures in [start, end) by kind, app and code,
// largest group first
func (r *Repository) FailureSummarySince(start, end time.Time) ([]models.FailureSummary, error) {
	var rows []struct {
		Kind       string
		AppName    string
		StatusCode int
		Count      int64
		LastSeen   string
	}
	result := r.db.Model(&models.ErrorLog{}).
		Select("kind, app_name, status_code, COUNT(*) AS count, MAX(timestamp) AS last_seen").
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Group("kind, app_name, status_code").
		Order("count DESC, last_seen DESC").
		Scan(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to summarize error logs")
	}

	summaries := make([]models.FailureSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.FailureSummary{
			Kind:       row.Kind,
			AppName:    row.AppName,
			StatusCode: row.StatusCode,
			Count:      row.Count,
			LastSeen:   parseSQLiteTime(row.LastSeen),
		})
	}
	return summaries, nil
}

// parseSQLiteTime reads an aggregated timestamp, which the driver returns as text
func parseSQLiteTime(raw string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ClearErrors removes all failures from the database
func (r *Repository) ClearErrors() error {
	result := r.db.Exec("DELETE FROM error_logs")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
