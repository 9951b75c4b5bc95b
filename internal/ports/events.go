package ports

import "github.com/wmweemba/ioss-compliance-reporter/internal/domain"

// SyncEventPublisher receives a SyncEvent after every sync attempt,
// successful or not. Publishing must never block the sync engine.
type SyncEventPublisher interface {
	Publish(event *domain.SyncEvent)
}
