// Package command contains write operations (CQRS - Commands).
//
// Every handler runs its writes through store.UnitOfWork so the attendance
// row, its media, journal, ledger delta and discipline rows commit or roll
// back together. Domain events are buffered during the transaction and
// published only after it commits.
package command

import (
	"errors"
	"strings"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// publishAll flushes recorded events and logs publishing failures. A failed
// publish never fails the command: the data is already committed.
func publishAll(rec *shared.EventRecorder, pub shared.EventPublisher, log *logger.Logger) {
	if pub == nil {
		return
	}
	for _, err := range rec.Flush(pub) {
		log.Warn("event publish failed", logger.Err(err))
	}
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// failure passes domain errors through and wraps anything else as a logged
// storage failure, so infrastructure detail never reaches the client.
func failure(log *logger.Logger, domain, op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	log.Error(domain+" "+op+" failed", logger.Operation(op), logger.Err(err))
	return shared.Storage(domain, op, err)
}
