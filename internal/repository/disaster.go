package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/disasterwatch/internal/domain/model"
)

// disasterColumns — список столбцов таблицы disasters для SELECT/RETURNING.
const disasterColumns = `id, title, location_name, description, latitude, longitude,
	tags, owner_id, created_at, audit_trail`

// ListParams — параметры выборки записей.
// nil = фильтр не применяется.
type ListParams struct {
	// Tag — точное (регистрозависимое) совпадение с одним из тегов записи
	Tag *string
}

// DisasterRepository — интерфейс CRUD для коллекции disasters.
type DisasterRepository interface {
	// Create сохраняет новую запись вместе с начальным журналом аудита.
	Create(ctx context.Context, d *model.Disaster) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*model.Disaster, error)
	// List возвращает записи с фильтрацией по тегу.
	List(ctx context.Context, params ListParams) ([]*model.Disaster, error)
	// Update заменяет редактируемые поля и добавляет entry в журнал аудита
	// одной атомарной операцией. Возвращает обновлённую запись.
	Update(ctx context.Context, d *model.Disaster, entry model.AuditEntry) (*model.Disaster, error)
	// Delete удаляет запись.
	Delete(ctx context.Context, id string) error
}

// disasterRepo — реализация DisasterRepository через pgx.
type disasterRepo struct {
	db DBTX
}

// NewDisasterRepository создаёт репозиторий записей о ЧС.
func NewDisasterRepository(db DBTX) DisasterRepository {
	return &disasterRepo{db: db}
}

func (r *disasterRepo) Create(ctx context.Context, d *model.Disaster) error {
	trail, err := json.Marshal(d.AuditTrail)
	if err != nil {
		return fmt.Errorf("сериализация журнала аудита: %w", err)
	}
	lat, lng := coordinateArgs(d.Coordinates)

	query := `
		INSERT INTO disasters (id, title, location_name, description, latitude, longitude,
			tags, owner_id, created_at, audit_trail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`

	_, err = r.db.Exec(ctx, query,
		d.ID, d.Title, d.LocationName, d.Description, lat, lng,
		nonNilTags(d.Tags), d.OwnerID, d.CreatedAt, string(trail),
	)
	if err != nil {
		return fmt.Errorf("ошибка создания записи: %w", err)
	}
	return nil
}

func (r *disasterRepo) GetByID(ctx context.Context, id string) (*model.Disaster, error) {
	query := fmt.Sprintf(`SELECT %s FROM disasters WHERE id = $1`, disasterColumns)

	d, err := scanDisaster(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return d, nil
}

func (r *disasterRepo) List(ctx context.Context, params ListParams) ([]*model.Disaster, error) {
	where, args := buildListWhere(params, 1)
	query := fmt.Sprintf(`SELECT %s FROM disasters %s ORDER BY created_at DESC`, disasterColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Disaster, 0)
	for rows.Next() {
		d, err := scanDisaster(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

func (r *disasterRepo) Update(ctx context.Context, d *model.Disaster, entry model.AuditEntry) (*model.Disaster, error) {
	// Одноэлементный массив: оператор || для JSONB-массивов дописывает элементы в конец
	appended, err := json.Marshal([]model.AuditEntry{entry})
	if err != nil {
		return nil, fmt.Errorf("сериализация записи аудита: %w", err)
	}
	lat, lng := coordinateArgs(d.Coordinates)

	query := fmt.Sprintf(`
		UPDATE disasters
		SET title = $2, location_name = $3, description = $4,
			latitude = $5, longitude = $6, tags = $7, owner_id = $8,
			audit_trail = audit_trail || $9::jsonb
		WHERE id = $1
		RETURNING %s`, disasterColumns)

	updated, err := scanDisaster(r.db.QueryRow(ctx, query,
		d.ID, d.Title, d.LocationName, d.Description, lat, lng,
		nonNilTags(d.Tags), d.OwnerID, string(appended),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return updated, nil
}

func (r *disasterRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM disasters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildListWhere строит WHERE-условие и аргументы для выборки записей.
// startArg — номер первого $-параметра.
func buildListWhere(params ListParams, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Фильтр по тегу: точное совпадение с любым элементом массива
	if params.Tag != nil {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argNum))
		args = append(args, *params.Tag)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// scanDisaster сканирует одну строку в порядке disasterColumns.
func scanDisaster(row pgx.Row) (*model.Disaster, error) {
	d := &model.Disaster{}
	var (
		lat, lng *float64
		trail    []byte
	)
	if err := row.Scan(
		&d.ID, &d.Title, &d.LocationName, &d.Description, &lat, &lng,
		&d.Tags, &d.OwnerID, &d.CreatedAt, &trail,
	); err != nil {
		return nil, err
	}

	if lat != nil && lng != nil {
		d.Coordinates = &model.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if err := json.Unmarshal(trail, &d.AuditTrail); err != nil {
		return nil, fmt.Errorf("разбор журнала аудита: %w", err)
	}
	return d, nil
}

// coordinateArgs раскладывает координаты в пару nullable-аргументов.
func coordinateArgs(c *model.Coordinates) (lat, lng *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Latitude, &c.Longitude
}

// nonNilTags гарантирует '{}' вместо NULL для пустого списка тегов.
func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
