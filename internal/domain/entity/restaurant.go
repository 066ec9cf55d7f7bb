package entity

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RestaurantSnapshot is the canonical restaurant record produced from a raw
// Restaurante document. Position is nil when the stored coordinates are unusable.
type RestaurantSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Contact     string `json:"contact"`
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
	PriceRange  string `json:"price_range"`

	OffersDelivery       bool `json:"offers_delivery"`
	AcceptsVouchers      bool `json:"accepts_vouchers"`
	HasVegetarianOptions bool `json:"has_vegetarian_options"`

	Cuisines []string     `json:"cuisines"`
	Position *Coordinates `json:"position"`

	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
	RatingTotal float64 `json:"rating_total"`
}

func (r *RestaurantSnapshot) Aggregate() RatingAggregate {
	return RatingAggregate{Total: r.RatingTotal, Count: r.RatingCount, Average: r.Rating}
}

func (r *RestaurantSnapshot) SetAggregate(agg RatingAggregate) {
	r.RatingTotal = agg.Total
	r.RatingCount = agg.Count
	r.Rating = agg.Average
}

func (r *RestaurantSnapshot) Mappable() bool {
	return r.Position != nil
}
