package product

import "cmp"

// Review is a single customer opinion about a product.
type Review struct {
	Rating   Rating
	Comments string
}

// NewReview returns a Review with the given rating and comments.
func NewReview(rating Rating, comments string) Review {
	return Review{Rating: rating, Comments: comments}
}

// CompareReviews orders reviews by rating, lowest first.
func CompareReviews(a, b Review) int {
	return cmp.Compare(a.Rating, b.Rating)
}

// Ratings extracts the rating of every review, preserving order.
func Ratings(reviews []Review) []Rating {
	out := make([]Rating, len(reviews))
	for i, r := range reviews {
		out[i] = r.Rating
	}
	return out
}
