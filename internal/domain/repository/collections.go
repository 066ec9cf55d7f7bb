package repository

import "strings"

// Collection and field names as stored by the web client.
const (
	RestaurantsCollection = "Restaurante"
	CommentsCollection    = "Comentario"
	ratingsSubcollection  = "ratings"

	FieldRatingTotal = "ratingTotal"
	FieldRatingCount = "ratingCount"
	FieldRating      = "rating"

	FieldRatingValue     = "valor"
	FieldRatingEmail     = "email"
	FieldRatingUserID    = "userId"
	FieldRatingUpdatedAt = "updatedAt"

	FieldCommentContent    = "Contenido"
	FieldCommentRestaurant = "Restaurante"
	FieldCommentDate       = "fecha"
	FieldCommentEmail      = "email"
	FieldCommentUserID     = "userId"
)

// RatingsCollection is the per-restaurant ratings sub-collection path.
func RatingsCollection(restaurantID string) string {
	return strings.Join([]string{RestaurantsCollection, restaurantID, ratingsSubcollection}, "/")
}

func RestaurantRef(restaurantID string) Ref {
	return Ref{Collection: RestaurantsCollection, ID: restaurantID}
}
