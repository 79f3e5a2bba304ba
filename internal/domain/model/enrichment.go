package model

// GeocodeResult — результат извлечения локации из текста и геокодирования.
// Вычисляется на каждый запрос, не сохраняется.
type GeocodeResult struct {
	LocationName string  `json:"locationName"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// VerificationResult — ответ модели об оценке подлинности изображения.
// Свободный текст без структурного разбора.
type VerificationResult struct {
	VerificationResult string `json:"verificationResult"`
}

// SocialMediaPost — пост демонстрационной ленты соцсетей.
type SocialMediaPost struct {
	Post string `json:"post"`
	User string `json:"user"`
}
