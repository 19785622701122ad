package domain

import "time"

// Movie is the metadata owned by the movie info service.
type Movie struct {
	MovieID   string    `json:"movieId"`
	Name      string    `json:"name"`
	Overview  string    `json:"overview,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// PlaceholderDescription is the description attached to every catalog item.
const PlaceholderDescription = "Description"

// CatalogItem is one enriched entry of a user's catalog.
type CatalogItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	// Unavailable marks items whose metadata lookup failed under the partial policy.
	Unavailable bool `json:"unavailable,omitempty"`
}

// NewCatalogItem merges a movie with the rating given to it.
func NewCatalogItem(movie Movie, rating Rating) CatalogItem {
	return CatalogItem{
		Name:        movie.Name,
		Description: PlaceholderDescription,
		Rating:      rating.Rating,
	}
}
