// audit.go — формирование записей журнала аудита.
package service

import (
	"strings"
	"time"

	"github.com/bigkaa/disasterwatch/internal/domain/model"
)

// ownerOrUnknown возвращает автора действия: ownerID или "unknown".
func ownerOrUnknown(ownerID string) string {
	if strings.TrimSpace(ownerID) == "" {
		return model.UnknownUser
	}
	return ownerID
}

// newAuditEntry создаёт запись журнала с временем в UTC.
func newAuditEntry(action, ownerID string, now time.Time) model.AuditEntry {
	return model.AuditEntry{
		Action:    action,
		UserID:    ownerOrUnknown(ownerID),
		Timestamp: now.UTC(),
	}
}
