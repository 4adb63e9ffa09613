package emissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Parameters a factor can be quantified by. The parameter decides the
// unit a quantity is expressed in on the wire.
const (
	ParamDistance = "distance"
	ParamEnergy   = "energy"
)

// Categories the catalog groups activity kinds under.
const (
	CategoryTransport = "transport"
	CategoryEnergy    = "energy"
)

// ErrUnknownKind is returned when an activity kind is not in the catalog.
var ErrUnknownKind = errors.New("unknown activity kind")

// paramUnits binds each parameter to the unit its quantities are sent in.
var paramUnits = map[string]string{
	ParamDistance: "km",
	ParamEnergy:   "kWh",
}

// Factor describes how an activity kind maps into the calculator's
// emission factor database.
type Factor struct {
	ActivityID string
	Parameter  string
	Category   string
}

// Unit returns the unit quantities for this factor are expressed in.
func (f Factor) Unit() string {
	return paramUnits[f.Parameter]
}

// Factor ids verified to exist in the calculator's database.
const (
	factorCar       = "passenger_vehicle-vehicle_type_car-fuel_source_na-engine_size_na-vehicle_age_na-vehicle_weight_na"
	factorCarBEV    = "passenger_vehicle-vehicle_type_car-fuel_source_bev-engine_size_na-vehicle_age_na-vehicle_weight_na"
	factorCarHEV    = "passenger_vehicle-vehicle_type_car-fuel_source_hev-engine_size_na-vehicle_age_na-vehicle_weight_na"
	factorMotorbike = "passenger_vehicle-vehicle_type_motorbike-fuel_source_na-engine_size_na-vehicle_age_na-vehicle_weight_na"
	factorBus       = "passenger_vehicle-vehicle_type_bus-fuel_source_na-engine_size_na-vehicle_age_na-vehicle_weight_na"
	factorTrain     = "passenger_vehicle-vehicle_type_train-fuel_source_na-engine_size_na-vehicle_age_na-vehicle_weight_na"
	factorTaxi      = "passenger_vehicle-vehicle_type_taxi-fuel_source_na-engine_size_na-vehicle_age_na-vehicle_weight_na"
	factorGridID    = "electricity-energy_source_grid_mix-id"
	factorGrid      = "electricity-energy_source_grid_mix"
	factorNatGas    = "fuel_combustion-fuel_type_natural_gas"
)

// catalog maps the activity kinds the ledger accepts to calculator factor
// ids. The calculator has no factors for the fuel and engine size variants
// of a car, so those kinds alias the generic car id.
var catalog = map[string]Factor{
	"car":          {factorCar, ParamDistance, CategoryTransport},
	"car_electric": {factorCarBEV, ParamDistance, CategoryTransport},
	"car_hybrid":   {factorCarHEV, ParamDistance, CategoryTransport},

	"car_petrol":        {factorCar, ParamDistance, CategoryTransport},
	"car_petrol_small":  {factorCar, ParamDistance, CategoryTransport},
	"car_petrol_medium": {factorCar, ParamDistance, CategoryTransport},
	"car_petrol_large":  {factorCar, ParamDistance, CategoryTransport},
	"car_diesel":        {factorCar, ParamDistance, CategoryTransport},
	"car_diesel_small":  {factorCar, ParamDistance, CategoryTransport},
	"car_diesel_medium": {factorCar, ParamDistance, CategoryTransport},
	"car_diesel_large":  {factorCar, ParamDistance, CategoryTransport},

	"motorbike":  {factorMotorbike, ParamDistance, CategoryTransport},
	"motorcycle": {factorMotorbike, ParamDistance, CategoryTransport},

	"bus":   {factorBus, ParamDistance, CategoryTransport},
	"train": {factorTrain, ParamDistance, CategoryTransport},
	"taxi":  {factorTaxi, ParamDistance, CategoryTransport},

	"electricity_id":   {factorGridID, ParamEnergy, CategoryEnergy},
	"electricity_grid": {factorGrid, ParamEnergy, CategoryEnergy},
	"natural_gas":      {factorNatGas, ParamEnergy, CategoryEnergy},
}

// Lookup resolves an activity kind to its calculator factor. Kinds are
// matched case insensitively.
func Lookup(kind string) (Factor, error) {
	factor, exists := catalog[strings.ToLower(kind)]
	if !exists {
		return Factor{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	return factor, nil
}

// IsSupported reports whether the specified activity kind is in the catalog.
func IsSupported(kind string) bool {
	_, exists := catalog[strings.ToLower(kind)]
	return exists
}

// Kinds returns the supported activity kinds grouped by category. The
// kinds in each group are sorted for a stable listing.
func Kinds() map[string][]string {
	groups := make(map[string][]string)
	for kind, factor := range catalog {
		groups[factor.Category] = append(groups[factor.Category], kind)
	}

	for _, kinds := range groups {
		sort.Strings(kinds)
	}

	return groups
}
