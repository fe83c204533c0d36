package sites

import (
	"strings"

	"github.com/pders01/scrp/internal/extract"
	"github.com/pders01/scrp/internal/storage"
)

// SamakalOpinion covers samakal.com's opinion listing. It is the
// built-in zero-config profile.
type SamakalOpinion struct{}

func NewSamakalOpinion() *SamakalOpinion {
	return &SamakalOpinion{}
}

func (s *SamakalOpinion) Name() string {
	return "samakal-opinion"
}

func (s *SamakalOpinion) CanHandle(url string) bool {
	return strings.Contains(url, "samakal.com")
}

func (s *SamakalOpinion) Selectors() extract.Selectors {
	return extract.Selectors{
		Article:     "a[href*='/opinion/article/']",
		Title:       []string{"h1", "h3"},
		Description: "p",
		Published:   ".publishTime",
		Image:       "img",
	}
}

func (s *SamakalOpinion) Channel() storage.Channel {
	return storage.Channel{
		Title:       "Samakal Opinion",
		Link:        "https://samakal.com/opinion",
		Description: "Latest opinion articles from Samakal",
	}
}

func (s *SamakalOpinion) Priority() int {
	return 10
}
