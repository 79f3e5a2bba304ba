// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrExtraction — модель не вернула название места.
	ErrExtraction = errors.New("не удалось извлечь локацию из описания")
	// ErrGeocode — геокодер не нашёл место.
	ErrGeocode = errors.New("не удалось геокодировать локацию")
	// ErrVerification — ошибка анализа изображения.
	ErrVerification = errors.New("ошибка проверки изображения")
	// ErrTransport — сбой обращения к внешнему сервису.
	ErrTransport = errors.New("внешний сервис недоступен")
)
