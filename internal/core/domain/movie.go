package domain

// Movie is the catalog entry a rental refers to. The catalog owns it;
// the rental engine only reads it and flips IsAvailable.
type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Genres      []string `json:"genres,omitempty"`
	IsAvailable bool     `json:"is_available"`
}
