// Package review implements the product review repository: submission,
// subscription-backed listing, and the single-response staff upsert.
package review

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/store"
)

var (
	// ErrBadRating rejects ratings outside 1..5 before any write.
	ErrBadRating = errors.New("review: rating must be between 1 and 5")
	// ErrMissingReviewer rejects submissions without name and email.
	ErrMissingReviewer = errors.New("review: reviewer name and email are required")
	// ErrEmptyResponse rejects empty staff responses client-side.
	ErrEmptyResponse = errors.New("review: empty response text")
)

// Repository exposes review operations over a store.Store. Reviews are keyed
// (productID, reviewID): partitioned per product, unlike sessions.
type Repository struct {
	Store store.Store
}

// NewRepository wires a repository to the given store.
func NewRepository(st store.Store) *Repository {
	return &Repository{Store: st}
}

func reviewPath(productID, reviewID string) string {
	return "reviews/" + productID + "/" + reviewID
}

// Submit validates and writes a new pending review, returning its push key.
func (r *Repository) Submit(productID, name, email string, rating int, comment string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return "", ErrMissingReviewer
	}
	if rating < 1 || rating > 5 {
		return "", ErrBadRating
	}

	id := r.Store.GenerateKey("reviews/" + productID)
	rec := map[string]any{
		"name":      name,
		"email":     email,
		"rating":    rating,
		"comment":   strings.TrimSpace(comment),
		"timestamp": store.ServerTimestamp,
		"status":    models.ReviewPending,
	}
	if err := r.Store.Write(reviewPath(productID, id), rec); err != nil {
		return "", fmt.Errorf("submit review: %w", err)
	}
	return id, nil
}

// Reviews subscribes to every review across all products, the staff console's
// view. Emissions are sorted newest first.
func (r *Repository) Reviews(onChange func([]models.Review)) func() {
	return r.Store.Subscribe("reviews", func(snap store.Snapshot) {
		var list []models.Review
		for productID, rawProduct := range snap {
			product, ok := rawProduct.(map[string]any)
			if !ok {
				continue
			}
			for id, raw := range product {
				rec, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				list = append(list, models.ReviewFromRecord(productID, id, rec))
			}
		}
		sortReviews(list)
		onChange(list)
	})
}

// ProductReviews subscribes to one product's reviews, newest first. The
// storefront product page consumes this stream.
func (r *Repository) ProductReviews(productID string, onChange func([]models.Review)) func() {
	return r.Store.Subscribe("reviews/"+productID, func(snap store.Snapshot) {
		var list []models.Review
		for id, raw := range snap {
			rec, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			list = append(list, models.ReviewFromRecord(productID, id, rec))
		}
		sortReviews(list)
		onChange(list)
	})
}

// Respond upserts the staff response on a review: an existing response is
// overwritten along with its timestamp, and status lands on responded either
// way. No history of prior responses is retained.
func (r *Repository) Respond(productID, reviewID, response string) error {
	response = strings.TrimSpace(response)
	if response == "" {
		return ErrEmptyResponse
	}
	return r.Store.Update(reviewPath(productID, reviewID), map[string]any{
		"response":          response,
		"responseTimestamp": store.ServerTimestamp,
		"status":            models.ReviewResponded,
	})
}

func sortReviews(list []models.Review) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp != list[j].Timestamp {
			return list[i].Timestamp > list[j].Timestamp
		}
		return list[i].ID > list[j].ID
	})
}
