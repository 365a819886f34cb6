package handler

import (
	"errors"
	"net/http"

	"brewhaus/backend/internal/review"
	"brewhaus/backend/internal/store"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// SubmitReview creates a pending review for a product. Validation failures
// are rejected before any store write.
func (h *Handler) SubmitReview(c *gin.Context) {
	productID := c.Param("productID")

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and rating are required"})
		return
	}

	id, err := h.Reviews.Submit(productID, req.Name, req.Email, req.Rating, req.Comment)
	switch {
	case errors.Is(err, review.ErrBadRating), errors.Is(err, review.ErrMissingReviewer):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reviews are temporarily unavailable"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save your review"})
	default:
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}
