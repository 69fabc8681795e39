package models

import "time"

// Place is a point of interest owned by a single user.
type Place struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Region      string    `json:"region"`
	Category    string    `json:"category"`
	Difficulty  string    `json:"difficulty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PlaceSummary is a dashboard row: the place plus aggregate counts.
type PlaceSummary struct {
	Place
	PhotoCount int `json:"photoCount"`
	RiskCount  int `json:"riskCount"`
}

// PlaceCost holds the expected spend for visiting a place. Absent values are zero.
type PlaceCost struct {
	PlaceID    int64   `json:"placeId"`
	TravelCost float64 `json:"travelCost"`
	FoodCost   float64 `json:"foodCost"`
	StayCost   float64 `json:"stayCost"`
	EntryFee   float64 `json:"entryFee"`
}

// Total is the sum of all cost components.
func (c PlaceCost) Total() float64 {
	return c.TravelCost + c.FoodCost + c.StayCost + c.EntryFee
}

// PlaceRequirement lists what a visitor should bring.
type PlaceRequirement struct {
	PlaceID  int64 `json:"placeId"`
	Footwear bool  `json:"footwear"`
	Water    bool  `json:"water"`
	Food     bool  `json:"food"`
	Raincoat bool  `json:"raincoat"`
}

// PlacePhoto is an uploaded image attached to a place.
type PlacePhoto struct {
	ID        int64  `json:"id"`
	PlaceID   int64  `json:"placeId"`
	ImagePath string `json:"imagePath"` // e.g. /uploads/1718000000000-ab12cd34.jpg
}

// PlaceDetails bundles a place with its dependent records.
type PlaceDetails struct {
	Place        Place
	Cost         PlaceCost
	Requirements PlaceRequirement
	Photos       []PlacePhoto
}

// PlaceFilter narrows the dashboard listing. Empty fields do not filter.
type PlaceFilter struct {
	Category   string
	Difficulty string
	Region     string // substring match
}
