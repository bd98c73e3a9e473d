package publisher

import (
	"log"
	"time"

	"github.com/QwQ-dev/LiveStatus/internal/models"
)

const (
	failureRetention = 7 * 24 * time.Hour
	failureKeep      = 500
)

// ErrorStore is the part of the repository the failure log writes to.
type ErrorStore interface {
	CreateErrorLog(errorLog *models.ErrorLog) error
	PruneErrors(before time.Time, keep int) (int64, error)
}

// StoreFailureLog appends failures to the database and keeps the table
// bounded to a week and failureKeep rows.
type StoreFailureLog struct {
	store ErrorStore
	now   func() time.Time
}

func NewStoreFailureLog(store ErrorStore) *StoreFailureLog {
	return &StoreFailureLog{store: store, now: time.Now}
}

func (l *StoreFailureLog) Record(o Outcome) {
	now := l.now()

	entry := &models.ErrorLog{
		Timestamp:  now,
		Kind:       o.Kind.String(),
		StatusCode: o.Code,
		AppName:    o.Status.AppName,
		ErrorMsg:   o.Message(),
	}
	if o.Err != nil {
		entry.ErrorMsg = o.Err.Error()
	}

	if err := l.store.CreateErrorLog(entry); err != nil {
		log.Printf("Failed to record delivery failure: %v", err)
		return
	}
	if _, err := l.store.PruneErrors(now.Add(-failureRetention), failureKeep); err != nil {
		log.Printf("Failed to prune delivery failures: %v", err)
	}
}
