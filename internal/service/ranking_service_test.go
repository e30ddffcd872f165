package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bazarly/promo-api/internal/models"
)

func rankedListing(id int64, promoted bool, priority int, price float64, publishedAgo time.Duration) models.Listing {
	published := time.Now().UTC().Add(-publishedAgo)
	return models.Listing{
		ID:          id,
		IsPromoted:  promoted,
		Priority:    priority,
		Price:       price,
		Status:      models.ListingStatusPublished,
		PublishedAt: &published,
		CreatedAt:   published,
	}
}

func ids(listings []models.Listing) []int64 {
	out := make([]int64, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func TestRankPromotedFirstByPriority(t *testing.T) {
	svc := NewRankingService()
	listings := []models.Listing{
		rankedListing(1, false, 0, 10, time.Hour),
		rankedListing(2, true, 1, 20, 2*time.Hour),
		rankedListing(3, true, 3, 30, 3*time.Hour),
	}

	ranked := svc.Rank(listings, TieBreakNewest)
	assert.Equal(t, []int64{3, 2, 1}, ids(ranked))
}

func TestRankTieBreakNewest(t *testing.T) {
	svc := NewRankingService()
	listings := []models.Listing{
		rankedListing(1, true, 2, 10, 3*time.Hour),
		rankedListing(2, true, 2, 20, time.Hour),
		rankedListing(3, false, 0, 5, 2*time.Hour),
		rankedListing(4, false, 0, 5, 30*time.Minute),
	}

	ranked := svc.Rank(listings, TieBreakNewest)
	assert.Equal(t, []int64{2, 1, 4, 3}, ids(ranked))
}

func TestRankTieBreakPrice(t *testing.T) {
	svc := NewRankingService()
	listings := []models.Listing{
		rankedListing(1, true, 2, 30, time.Hour),
		rankedListing(2, true, 2, 10, time.Hour),
		rankedListing(3, false, 0, 20, time.Hour),
	}

	asc := svc.Rank(listings, TieBreakPriceAsc)
	assert.Equal(t, []int64{2, 1, 3}, ids(asc))

	desc := svc.Rank(listings, TieBreakPriceDesc)
	assert.Equal(t, []int64{1, 2, 3}, ids(desc))
}

func TestRankIgnoresStalePriorityOnUnpromoted(t *testing.T) {
	svc := NewRankingService()
	// A cleared signal leaves priority zero, but even a stale nonzero value
	// must not outrank promoted rows once is_promoted is false.
	listings := []models.Listing{
		rankedListing(1, false, 5, 10, time.Hour),
		rankedListing(2, true, 1, 10, time.Hour),
	}

	ranked := svc.Rank(listings, TieBreakNewest)
	assert.Equal(t, []int64{2, 1}, ids(ranked))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	svc := NewRankingService()
	listings := []models.Listing{
		rankedListing(1, false, 0, 10, time.Hour),
		rankedListing(2, true, 1, 20, time.Hour),
	}

	_ = svc.Rank(listings, TieBreakNewest)
	assert.Equal(t, []int64{1, 2}, ids(listings))
}
