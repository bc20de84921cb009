package models

// Category is global reference data, seeded at setup and read-only
// through the API.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}
