package usecase

import (
	"context"
	"log/slog"
	"strings"

	"lugares/internal/domain/entity"
	"lugares/internal/domain/repository"
	"lugares/internal/domain/service"
	"lugares/internal/infrastructure/metrics"
	"lugares/pkg/config"
	"lugares/pkg/errors"
)

// RatingUseCase keeps each restaurant's (ratingTotal, ratingCount, rating)
// in step with its ratings sub-collection.
//
// The transactional strategy reads the stored totals and the caller's own
// record inside one store transaction and applies the delta, so concurrent
// raters are serialized by the store. The rescan strategy recomputes the
// aggregate from every record read outside any transaction: two raters
// finishing together can leave a stale aggregate until the next rescan.
// Only use it when writes are rare.
type RatingUseCase struct {
	store    repository.DocumentStore
	strategy string
	cache    SnapshotCache
	notifier RatingNotifier
	logger   *slog.Logger
}

func NewRatingUseCase(
	store repository.DocumentStore,
	strategy string,
	cache SnapshotCache,
	notifier RatingNotifier,
	logger *slog.Logger,
) *RatingUseCase {
	if strategy != config.StrategyRescan {
		strategy = config.StrategyTransactional
	}
	return &RatingUseCase{
		store:    store,
		strategy: strategy,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}
}

func (uc *RatingUseCase) Strategy() string {
	return uc.strategy
}

// SubmitRating records the caller's score and returns the restaurant's new average.
func (uc *RatingUseCase) SubmitRating(ctx context.Context, restaurantID string, identity entity.AuthorIdentity, value float64) (entity.RatingResult, error) {
	if !identity.IsAuthenticated() {
		return entity.RatingResult{}, errors.NotAuthenticated("sign in to rate restaurants")
	}
	if !entity.ValidRatingValue(value) {
		return entity.RatingResult{}, errors.InvalidRatingValue("rating must be a whole number between 1 and 5")
	}
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return entity.RatingResult{}, errors.RestaurantNotFound(restaurantID, nil)
	}

	var (
		agg entity.RatingAggregate
		err error
	)
	if uc.strategy == config.StrategyRescan {
		agg, err = uc.submitRescan(ctx, restaurantID, identity, int(value))
	} else {
		agg, err = uc.submitTransactional(ctx, restaurantID, identity, int(value))
	}
	metrics.RecordRatingSubmission(uc.strategy, err)
	if err != nil {
		uc.logger.WarnContext(ctx, "rating submission failed",
			slog.String("restaurant_id", restaurantID),
			slog.String("strategy", uc.strategy),
			slog.String("error", err.Error()),
		)
		return entity.RatingResult{}, err
	}

	result := agg.Result()
	uc.logger.InfoContext(ctx, "rating submitted",
		slog.String("restaurant_id", restaurantID),
		slog.String("rater", identity.Key()),
		slog.Int("value", int(value)),
		slog.Float64("average", result.Average),
		slog.Int("count", result.Count),
	)

	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.logger.WarnContext(ctx, "invalidate restaurant cache", slog.String("error", err.Error()))
	}
	uc.notifier.RatingUpdated(restaurantID, result)

	return result, nil
}

func (uc *RatingUseCase) submitTransactional(ctx context.Context, restaurantID string, identity entity.AuthorIdentity, value int) (entity.RatingAggregate, error) {
	ratings := repository.RatingsCollection(restaurantID)
	key := identity.Key()
	legacyKeys := legacyRatingKeys(identity)

	var (
		agg      entity.RatingAggregate
		attempts int
	)

	// Once submitted the transaction runs to completion even if the caller goes away.
	err := uc.store.RunTransaction(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.Txn) error {
		attempts++

		restaurant, err := tx.Get(repository.RestaurantsCollection, restaurantID)
		if err != nil {
			if isNotFound(err) {
				return errors.RestaurantNotFound(restaurantID, nil)
			}
			return err
		}
		current := storedAggregate(restaurant)

		var previous []float64
		if v, found, err := readRatingValue(tx, ratings, key); err != nil {
			return err
		} else if found {
			previous = append(previous, v)
		}

		var migrated []string
		for _, legacy := range legacyKeys {
			v, found, err := readRatingValue(tx, ratings, legacy)
			if err != nil {
				return err
			}
			if found {
				previous = append(previous, v)
				migrated = append(migrated, legacy)
			}
		}

		agg = foldRating(current, previous, value)

		if err := tx.Set(ratings, key, ratingFields(identity, value), false); err != nil {
			return err
		}
		for _, legacy := range migrated {
			if err := tx.Delete(ratings, legacy); err != nil {
				return err
			}
		}
		return tx.Update(repository.RestaurantsCollection, restaurantID, aggregateFields(agg))
	})
	metrics.ObserveTransactionAttempts(attempts)

	if err != nil {
		if isNotFound(err) {
			// The restaurant disappeared between our read and the commit.
			return entity.RatingAggregate{}, errors.RestaurantNotFound(restaurantID, err)
		}
		return entity.RatingAggregate{}, storeError("could not save rating", err)
	}
	return agg, nil
}

// submitRescan sums every other rater's record outside any transaction, then
// writes the caller's record and the new aggregate in one short transaction
// that fails if the restaurant is gone.
func (uc *RatingUseCase) submitRescan(ctx context.Context, restaurantID string, identity entity.AuthorIdentity, value int) (entity.RatingAggregate, error) {
	if _, err := uc.store.Get(ctx, repository.RestaurantsCollection, restaurantID); err != nil {
		if isNotFound(err) {
			return entity.RatingAggregate{}, errors.RestaurantNotFound(restaurantID, nil)
		}
		return entity.RatingAggregate{}, storeError("could not load restaurant", err)
	}

	ratings := repository.RatingsCollection(restaurantID)
	key := identity.Key()
	legacyKeys := legacyRatingKeys(identity)

	docs, err := uc.store.Query(ctx, ratings)
	if err != nil {
		return entity.RatingAggregate{}, storeError("could not read ratings", err)
	}

	mine := map[string]bool{key: true}
	for _, legacy := range legacyKeys {
		mine[legacy] = true
	}
	others := make([]*repository.Document, 0, len(docs))
	for _, doc := range docs {
		if !mine[doc.ID] {
			others = append(others, doc)
		}
	}
	sum := SumRatings(others)
	agg := entity.NewRatingAggregate(sum.Total+float64(value), sum.Count+1)

	err = uc.store.RunTransaction(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.Txn) error {
		if _, err := tx.Get(repository.RestaurantsCollection, restaurantID); err != nil {
			if isNotFound(err) {
				return errors.RestaurantNotFound(restaurantID, nil)
			}
			return err
		}
		if err := tx.Set(ratings, key, ratingFields(identity, value), false); err != nil {
			return err
		}
		for _, legacy := range legacyKeys {
			if err := tx.Delete(ratings, legacy); err != nil {
				return err
			}
		}
		return tx.Update(repository.RestaurantsCollection, restaurantID, aggregateFields(agg))
	})
	if err != nil {
		if isNotFound(err) {
			return entity.RatingAggregate{}, errors.RestaurantNotFound(restaurantID, err)
		}
		return entity.RatingAggregate{}, storeError("could not save rating", err)
	}
	return agg, nil
}

// GetUserRating returns the caller's current score for a restaurant, if any.
func (uc *RatingUseCase) GetUserRating(ctx context.Context, restaurantID string, identity entity.AuthorIdentity) (int, bool, error) {
	if !identity.IsAuthenticated() {
		return 0, false, errors.NotAuthenticated("sign in to see your rating")
	}
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return 0, false, errors.RestaurantNotFound(restaurantID, nil)
	}

	ratings := repository.RatingsCollection(restaurantID)
	for _, key := range append([]string{identity.Key()}, legacyRatingKeys(identity)...) {
		doc, err := uc.store.Get(ctx, ratings, key)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return 0, false, storeError("could not load rating", err)
		}
		v, ok := service.CoerceNumber(doc.Fields[repository.FieldRatingValue])
		if !ok || !entity.ValidRatingValue(v) {
			return 0, false, nil
		}
		return int(v), true, nil
	}
	return 0, false, nil
}

// SumRatings recomputes an aggregate from rating records, skipping values
// that are not finite numbers.
func SumRatings(docs []*repository.Document) entity.RatingAggregate {
	total := 0.0
	count := 0
	for _, doc := range docs {
		v, ok := service.CoerceNumber(doc.Fields[repository.FieldRatingValue])
		if !ok {
			continue
		}
		total += v
		count++
	}
	return entity.NewRatingAggregate(total, count)
}

// legacyRatingKeys lists keys this user's rating may have been stored under
// before stable ids were used. The transaction folds them into the current key.
func legacyRatingKeys(identity entity.AuthorIdentity) []string {
	key := identity.Key()
	var keys []string
	if legacy := identity.LegacyKey(); legacy != "" {
		keys = append(keys, legacy)
	}
	if email := identity.NormalizedEmail(); email != "" && email != key && email != identity.LegacyKey() {
		keys = append(keys, email)
	}
	return keys
}

func storedAggregate(doc *repository.Document) entity.RatingAggregate {
	total, _ := service.CoerceNumber(doc.Fields[repository.FieldRatingTotal])
	count, _ := service.CoerceNumber(doc.Fields[repository.FieldRatingCount])
	return entity.NewRatingAggregate(total, int(count))
}

// readRatingValue reports whether a record exists under key. A record whose
// value is unreadable still exists and contributes 0.
func readRatingValue(tx repository.Txn, collection, key string) (float64, bool, error) {
	doc, err := tx.Get(collection, key)
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	v, _ := service.CoerceNumber(doc.Fields[repository.FieldRatingValue])
	return v, true, nil
}

// foldRating applies a new value given the caller's existing records. More
// than one existing record means legacy duplicates that are being merged.
func foldRating(current entity.RatingAggregate, previous []float64, value int) entity.RatingAggregate {
	if len(previous) == 0 {
		return current.Apply(nil, value)
	}

	total := current.Total
	for _, p := range previous {
		total -= p
	}
	count := current.Count - (len(previous) - 1)
	if count < 1 {
		count = 1
	}
	return entity.NewRatingAggregate(total+float64(value), count)
}

func ratingFields(identity entity.AuthorIdentity, value int) map[string]interface{} {
	fields := map[string]interface{}{
		repository.FieldRatingValue:     value,
		repository.FieldRatingEmail:     identity.Email,
		repository.FieldRatingUpdatedAt: repository.ServerTimestamp,
	}
	if identity.ID != "" {
		fields[repository.FieldRatingUserID] = identity.ID
	}
	return fields
}

func aggregateFields(agg entity.RatingAggregate) map[string]interface{} {
	return map[string]interface{}{
		repository.FieldRatingTotal: agg.Total,
		repository.FieldRatingCount: agg.Count,
		repository.FieldRating:      agg.Average,
	}
}
