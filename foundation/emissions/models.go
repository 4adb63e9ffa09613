package emissions

// factorSelector identifies the emission factor to price against.
type factorSelector struct {
	ActivityID  string `json:"activity_id"`
	DataVersion string `json:"data_version"`
}

// estimateRequest is the payload sent to the calculator's estimate endpoint.
// Parameters carries the quantity and its unit keyed by parameter name,
// such as {"distance": 25.5, "distance_unit": "km"}.
type estimateRequest struct {
	EmissionFactor factorSelector `json:"emission_factor"`
	Parameters     map[string]any `json:"parameters"`
}

// FactorDetail carries the calculator's description of an emission factor.
type FactorDetail struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ActivityID string `json:"activity_id"`
	Category   string `json:"category"`
	Source     string `json:"source"`
	Region     string `json:"region"`
	Year       int    `json:"year"`
	Unit       string `json:"unit"`
	UnitType   string `json:"unit_type"`
}

// Estimate is the result of pricing an activity against the calculator.
type Estimate struct {
	CO2e       float64      `json:"co2e"`
	CO2eUnit   string       `json:"co2e_unit"`
	ActivityID string       `json:"activity_id"`
	Factor     FactorDetail `json:"emission_factor"`
}

// SearchFilter narrows an emission factor search. Zero valued fields are
// not sent to the calculator.
type SearchFilter struct {
	Query          string
	Category       string
	Source         string
	Region         string
	ResultsPerPage int
}

// SearchPage is one page of emission factor search results.
type SearchPage struct {
	CurrentPage  int            `json:"current_page"`
	LastPage     int            `json:"last_page"`
	TotalResults int            `json:"total_results"`
	Results      []FactorDetail `json:"results"`
}
