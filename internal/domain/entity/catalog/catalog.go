package catalog

// Store is a physical location inventory can sit in.
type Store struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Region    string  `json:"region,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Capacity  int64   `json:"capacity,omitempty"`
}

// Product is the catalog record an agent is created for.
type Product struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory,omitempty"`
	Brand           string   `json:"brand,omitempty"`
	BaseCost        float64  `json:"base_cost"`
	StandardRetail  float64  `json:"standard_retail"`
	TargetMarginPct float64  `json:"target_margin_pct"`
	Seasonality     []string `json:"seasonality,omitempty"`
	Perishable      bool     `json:"perishable,omitempty"`
}
