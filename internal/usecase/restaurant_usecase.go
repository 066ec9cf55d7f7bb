package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"lugares/internal/domain/entity"
	"lugares/internal/domain/repository"
	"lugares/internal/domain/service"
	"lugares/pkg/config"
	"lugares/pkg/errors"
	"lugares/pkg/utils"
)

// RestaurantFilter narrows a listing. Zero values match everything.
type RestaurantFilter struct {
	Query      string
	Category   string
	Delivery   bool
	Vouchers   bool
	Vegetarian bool

	// Mappable drops restaurants without usable coordinates.
	Mappable bool
}

func (f RestaurantFilter) Matches(r *entity.RestaurantSnapshot) bool {
	if f.Delivery && !r.OffersDelivery {
		return false
	}
	if f.Vouchers && !r.AcceptsVouchers {
		return false
	}
	if f.Vegetarian && !r.HasVegetarianOptions {
		return false
	}
	if f.Mappable && !r.Mappable() {
		return false
	}

	if category := strings.TrimSpace(f.Category); category != "" {
		found := false
		for _, c := range r.Cuisines {
			if strings.EqualFold(c, category) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if query := strings.ToLower(strings.TrimSpace(f.Query)); query != "" {
		for _, field := range []string{r.Name, r.Address, r.Description} {
			if strings.Contains(strings.ToLower(field), query) {
				return true
			}
		}
		return false
	}
	return true
}

type RestaurantUseCase struct {
	store       repository.DocumentStore
	cache       SnapshotCache
	strategy    string
	concurrency int
	logger      *slog.Logger
}

func NewRestaurantUseCase(
	store repository.DocumentStore,
	cache SnapshotCache,
	strategy string,
	concurrency int,
	logger *slog.Logger,
) *RestaurantUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RestaurantUseCase{
		store:       store,
		cache:       cache,
		strategy:    strategy,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (uc *RestaurantUseCase) GetRestaurant(ctx context.Context, id string) (*entity.RestaurantSnapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.RestaurantNotFound(id, nil)
	}

	doc, err := uc.store.Get(ctx, repository.RestaurantsCollection, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.RestaurantNotFound(id, nil)
		}
		return nil, storeError("could not load restaurant", err)
	}

	snapshot := service.NormalizeRestaurant(doc)
	if uc.strategy == config.StrategyRescan {
		uc.recompute(ctx, &snapshot)
	}
	return &snapshot, nil
}

// ListRestaurants returns one page of the filtered listing and the number of
// matches across all pages.
func (uc *RestaurantUseCase) ListRestaurants(ctx context.Context, filter RestaurantFilter, page utils.PaginationParams) ([]entity.RestaurantSnapshot, int64, error) {
	all, err := uc.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]entity.RestaurantSnapshot, 0, len(all))
	for i := range all {
		if filter.Matches(&all[i]) {
			matched = append(matched, all[i])
		}
	}

	start, end := page.Window(len(matched))
	return matched[start:end], int64(len(matched)), nil
}

// ListCategories returns every cuisine tag in use, deduplicated without
// regard to case and sorted alphabetically. The first spelling seen wins.
func (uc *RestaurantUseCase) ListCategories(ctx context.Context) ([]string, error) {
	all, err := uc.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	categories := []string{}
	for _, r := range all {
		for _, c := range r.Cuisines {
			key := strings.ToLower(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			categories = append(categories, c)
		}
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return strings.ToLower(categories[i]) < strings.ToLower(categories[j])
	})
	return categories, nil
}

func (uc *RestaurantUseCase) loadAll(ctx context.Context) ([]entity.RestaurantSnapshot, error) {
	cached, ok, err := uc.cache.GetAll(ctx)
	if err != nil {
		uc.logger.WarnContext(ctx, "restaurant cache read failed", slog.String("error", err.Error()))
	} else if ok {
		return cached, nil
	}

	// Taken before the store read so a rating committed during the load
	// keeps this list out of the cache.
	generation, genErr := uc.cache.Generation(ctx)
	if genErr != nil {
		uc.logger.WarnContext(ctx, "restaurant cache generation read failed", slog.String("error", genErr.Error()))
	}

	docs, err := uc.store.Query(ctx, repository.RestaurantsCollection)
	if err != nil {
		return nil, storeError("could not load restaurants", err)
	}

	snapshots := make([]entity.RestaurantSnapshot, len(docs))
	for i, doc := range docs {
		snapshots[i] = service.NormalizeRestaurant(doc)
	}

	if uc.strategy == config.StrategyRescan {
		uc.recomputeAll(ctx, snapshots)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		a, b := strings.ToLower(snapshots[i].Name), strings.ToLower(snapshots[j].Name)
		if a != b {
			return a < b
		}
		return snapshots[i].ID < snapshots[j].ID
	})

	if genErr == nil {
		stored, err := uc.cache.SetAll(ctx, generation, snapshots)
		if err != nil {
			uc.logger.WarnContext(ctx, "restaurant cache write failed", slog.String("error", err.Error()))
		} else if !stored {
			uc.logger.DebugContext(ctx, "restaurant cache invalidated during load, not storing")
		}
	}
	return snapshots, nil
}

// recomputeAll refreshes every aggregate from its ratings sub-collection.
// A restaurant whose ratings cannot be read keeps its stored aggregate.
func (uc *RestaurantUseCase) recomputeAll(ctx context.Context, snapshots []entity.RestaurantSnapshot) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	for i := range snapshots {
		snapshot := &snapshots[i]
		g.Go(func() error {
			uc.recompute(gctx, snapshot)
			return nil
		})
	}
	_ = g.Wait()
}

func (uc *RestaurantUseCase) recompute(ctx context.Context, snapshot *entity.RestaurantSnapshot) {
	docs, err := uc.store.Query(ctx, repository.RatingsCollection(snapshot.ID))
	if err != nil {
		uc.logger.WarnContext(ctx, "could not rescan ratings, keeping stored aggregate",
			slog.String("restaurant_id", snapshot.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	snapshot.SetAggregate(SumRatings(docs))
}
