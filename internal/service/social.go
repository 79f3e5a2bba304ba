// social.go — демонстрационная лента соцсетей по записи.
// Данные фиксированные; каждый запрос рассылает social_media_updated.
package service

import (
	"log/slog"

	"github.com/bigkaa/disasterwatch/internal/domain/model"
	"github.com/bigkaa/disasterwatch/internal/events"
)

// mockPosts — фиксированная лента.
var mockPosts = []model.SocialMediaPost{
	{Post: "#floodrelief Need food in NYC", User: "citizen1"},
	{Post: "#earthquake trapped in basement", User: "citizen2"},
}

// SocialMediaService — выдача демонстрационной ленты.
type SocialMediaService struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewSocialMediaService создаёт сервис ленты.
func NewSocialMediaService(publisher Publisher, logger *slog.Logger) *SocialMediaService {
	return &SocialMediaService{
		publisher: publisher,
		logger:    logger.With(slog.String("component", "social_service")),
	}
}

// Posts возвращает ленту для записи disasterID и рассылает её подписчикам.
// Существование записи не проверяется.
func (s *SocialMediaService) Posts(disasterID string) []model.SocialMediaPost {
	posts := make([]model.SocialMediaPost, len(mockPosts))
	copy(posts, mockPosts)

	if s.publisher != nil {
		if err := s.publisher.Broadcast(events.SocialMediaUpdated, posts); err != nil {
			s.logger.Error("Ошибка рассылки события",
				slog.String("event", events.SocialMediaUpdated),
				slog.String("disaster_id", disasterID),
				slog.String("error", err.Error()),
			)
		}
	}
	return posts
}
