// Пакет model — доменные модели disasterwatch.
// Disaster — документ коллекции disasters; JSON-теги — контракт REST и WebSocket.
package model

import "time"

// Действия журнала аудита.
const (
	// ActionCreate — запись создана.
	ActionCreate = "create"
	// ActionUpdate — запись обновлена.
	ActionUpdate = "update"
)

// UnknownUser — автор действия, если ownerId не передан.
const UnknownUser = "unknown"

// Coordinates — географические координаты (WGS 84).
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AuditEntry — элемент журнала аудита записи.
// После добавления в журнал не изменяется.
type AuditEntry struct {
	// Action — create или update
	Action string `json:"action"`
	// UserID — кто выполнил действие (ownerId запроса или "unknown")
	UserID string `json:"userId"`
	// Timestamp — время действия (UTC)
	Timestamp time.Time `json:"timestamp"`
}

// Disaster — отчёт о чрезвычайной ситуации.
type Disaster struct {
	// ID — UUID записи, назначается при создании и больше не меняется
	ID string `json:"id"`
	// Title — заголовок
	Title string `json:"title"`
	// LocationName — название места в свободной форме
	LocationName string `json:"locationName"`
	// Description — описание
	Description string `json:"description"`
	// Coordinates — координаты (nil, если неизвестны)
	Coordinates *Coordinates `json:"coordinates"`
	// Tags — теги в порядке передачи, без нормализации
	Tags []string `json:"tags"`
	// OwnerID — идентификатор автора отчёта
	OwnerID string `json:"ownerId"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"createdAt"`
	// AuditTrail — журнал действий, только добавление
	AuditTrail []AuditEntry `json:"auditTrail"`
}

// DeletedEvent — полезная нагрузка disaster_updated при удалении записи.
type DeletedEvent struct {
	Deleted string `json:"deleted"`
}
