package service

import (
	"sort"

	"github.com/bazarly/promo-api/internal/models"
)

// TieBreak selects the order applied within equal promotion weight.
type TieBreak string

const (
	TieBreakNewest    TieBreak = "NEWEST"
	TieBreakPriceAsc  TieBreak = "PRICE_ASC"
	TieBreakPriceDesc TieBreak = "PRICE_DESC"
)

// RankingService orders search results by the denormalized promotion signal.
// It is read-only: the signal is a cache maintained by the activation and
// sweep paths, and staleness is bounded by one sweep interval.
type RankingService struct{}

// NewRankingService constructs a RankingService instance.
func NewRankingService() *RankingService {
	return &RankingService{}
}

// Rank sorts listings with promoted ones first, highest promotion priority
// leading, and breaks ties with the requested base order. The sort is stable
// so equally-weighted listings keep their incoming relative order when the
// tie-break cannot separate them.
func (s *RankingService) Rank(listings []models.Listing, tieBreak TieBreak) []models.Listing {
	ranked := make([]models.Listing, len(listings))
	copy(ranked, listings)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.IsPromoted != b.IsPromoted {
			return a.IsPromoted
		}
		if a.IsPromoted && a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return s.tieLess(a, b, tieBreak)
	})
	return ranked
}

func (s *RankingService) tieLess(a, b models.Listing, tieBreak TieBreak) bool {
	switch tieBreak {
	case TieBreakPriceAsc:
		return a.Price < b.Price
	case TieBreakPriceDesc:
		return a.Price > b.Price
	default:
		return publishedAfter(a, b)
	}
}

func publishedAfter(a, b models.Listing) bool {
	at, bt := a.CreatedAt, b.CreatedAt
	if a.PublishedAt != nil {
		at = *a.PublishedAt
	}
	if b.PublishedAt != nil {
		bt = *b.PublishedAt
	}
	return at.After(bt)
}
