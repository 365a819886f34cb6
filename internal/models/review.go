package models

// Review status values. A review starts pending and becomes responded once
// staff submit a response; a second response overwrites the first.
const (
	ReviewPending   = "pending"
	ReviewResponded = "responded"
)

// Review is a product review with at most one retained staff response.
// Reviews are partitioned per product, unlike sessions.
type Review struct {
	ProductID string `json:"productId"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	// Rating is 1 through 5, validated before any write.
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Timestamp int64  `json:"timestamp"`

	Response          string `json:"response,omitempty"`
	ResponseTimestamp int64  `json:"responseTimestamp,omitempty"`
	Status            string `json:"status"`
}

// Pending reports whether the review still awaits a staff response.
func (r Review) Pending() bool { return r.Status == ReviewPending }

// Record flattens the review into store fields.
func (r Review) Record() map[string]any {
	rec := map[string]any{
		"name":      r.Name,
		"email":     r.Email,
		"rating":    r.Rating,
		"comment":   r.Comment,
		"timestamp": r.Timestamp,
		"status":    r.Status,
	}
	if r.Response != "" {
		rec["response"] = r.Response
		rec["responseTimestamp"] = r.ResponseTimestamp
	}
	return rec
}

// ReviewFromRecord decodes a raw store snapshot into a Review. A missing
// status defaults to pending; an out-of-range rating clamps into 1..5 so a
// corrupt record never renders six stars.
func ReviewFromRecord(productID, id string, rec map[string]any) Review {
	r := Review{
		ProductID:         productID,
		ID:                id,
		Name:              asString(rec["name"]),
		Email:             asString(rec["email"]),
		Rating:            asInt(rec["rating"]),
		Comment:           asString(rec["comment"]),
		Timestamp:         asInt64(rec["timestamp"]),
		Response:          asString(rec["response"]),
		ResponseTimestamp: asInt64(rec["responseTimestamp"]),
		Status:            asString(rec["status"]),
	}
	if r.Status == "" {
		r.Status = ReviewPending
	}
	if r.Rating < 1 {
		r.Rating = 1
	}
	if r.Rating > 5 {
		r.Rating = 5
	}
	return r
}
