package service

import (
	"cmp"
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// TopRated returns the n highest-rated fragrances. Absent ratings count as
// 0 and ties keep snapshot order. The input is not modified.
func TopRated(frags []domain.Fragrance, n int) []domain.Fragrance {
	return topBy(frags, n, func(a, b domain.Fragrance) int {
		return cmp.Compare(b.RatingOrZero(), a.RatingOrZero())
	})
}

// MostPopular returns the n best-selling fragrances. Absent sales count as
// 0 and ties keep snapshot order. The input is not modified.
func MostPopular(frags []domain.Fragrance, n int) []domain.Fragrance {
	return topBy(frags, n, func(a, b domain.Fragrance) int {
		return cmp.Compare(b.SalesOrZero(), a.SalesOrZero())
	})
}

func topBy(frags []domain.Fragrance, n int, less func(a, b domain.Fragrance) int) []domain.Fragrance {
	if n <= 0 {
		return []domain.Fragrance{}
	}
	sorted := append([]domain.Fragrance{}, frags...)
	slices.SortStableFunc(sorted, less)
	return sorted[:min(n, len(sorted))]
}

// Featured returns n distinct fragrances picked uniformly at random with a
// Fisher-Yates shuffle of a copy of frags.
func Featured(frags []domain.Fragrance, n int, rng *rand.Rand) []domain.Fragrance {
	if n <= 0 {
		return []domain.Fragrance{}
	}
	shuffled := append([]domain.Fragrance{}, frags...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:min(n, len(shuffled))]
}

// HomePage is the landing view: three rankings over one catalog snapshot
// plus the accord badges of every fragrance.
type HomePage struct {
	TopRated    []domain.Fragrance              `json:"top_rated"`
	Featured    []domain.Fragrance              `json:"featured"`
	MostPopular []domain.Fragrance              `json:"most_popular"`
	Accords     map[string][]domain.AccordBadge `json:"accords"`
}

// RankingService derives rankings from the fragrance catalog.
type RankingService struct {
	store    store.Client
	resolver *NoteResolver
	logger   *slog.Logger

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// NewRankingService creates a new ranking service. A nil rng is seeded randomly.
func NewRankingService(client store.Client, resolver *NoteResolver, rng *rand.Rand, logger *slog.Logger) *RankingService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RankingService{
		store:    client,
		resolver: resolver,
		logger:   logger,
		rng:      rng,
	}
}

// Snapshot fetches every fragrance once, in store order.
func (s *RankingService) Snapshot(ctx context.Context) ([]domain.Fragrance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.store.Fetch(ctx, store.KindFragrances, store.All())
	if err != nil {
		return nil, domainerrors.FromStore(err, "load fragrances")
	}
	frags := make([]domain.Fragrance, len(rows))
	for i, row := range rows {
		frags[i] = store.DecodeFragrance(row)
	}
	return frags, nil
}

func (s *RankingService) featured(frags []domain.Fragrance, n int) []domain.Fragrance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Featured(frags, n, s.rng)
}

// Home builds the landing page from a single fragrance snapshot.
func (s *RankingService) Home(ctx context.Context, n int) (*HomePage, error) {
	frags, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	accords, err := s.resolver.CatalogAccordSummary(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "home page built", "fragrances", len(frags), "list_size", n)

	return &HomePage{
		TopRated:    TopRated(frags, n),
		Featured:    s.featured(frags, n),
		MostPopular: MostPopular(frags, n),
		Accords:     accords,
	}, nil
}
