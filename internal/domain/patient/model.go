package patient

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for negative ages, months outside 0..11 or a
// non-positive observed weight.
var ErrInvalidInput = errors.New("invalid patient input")

// Identity is the age and weight a case is started with. A zero WeightKg
// means "not weighed"; the weight is then estimated from age.
type Identity struct {
	AgeYears  int     `json:"age_years" validate:"gte=0"`
	AgeMonths int     `json:"age_months" validate:"gte=0,lte=11"`
	WeightKg  float64 `json:"weight_kg,omitempty" validate:"gte=0"`
}

// TotalMonths returns the age expressed in months.
func (id Identity) TotalMonths() int {
	return id.AgeYears*12 + id.AgeMonths
}

// IsInfant reports whether the patient is younger than 12 months.
func (id Identity) IsInfant() bool {
	return id.TotalMonths() < 12
}

// Validate checks the identity bounds.
func (id Identity) Validate() error {
	if id.AgeYears < 0 {
		return fmt.Errorf("%w: age_years must not be negative", ErrInvalidInput)
	}
	if id.AgeMonths < 0 || id.AgeMonths > 11 {
		return fmt.Errorf("%w: age_months must be between 0 and 11", ErrInvalidInput)
	}
	if id.WeightKg < 0 {
		return fmt.Errorf("%w: weight_kg must be positive", ErrInvalidInput)
	}
	return nil
}

// AgeBand groups ages for vital-sign reference ranges.
type AgeBand string

const (
	BandInfant    AgeBand = "infant"     // < 12 months
	BandToddler   AgeBand = "toddler"    // 1 to < 3 years
	BandPreschool AgeBand = "preschool"  // 3 to 6 years
	BandSchoolAge AgeBand = "school_age" // > 6 years
)

// Band returns the reference age band for the identity.
func (id Identity) Band() AgeBand {
	switch {
	case id.IsInfant():
		return BandInfant
	case id.AgeYears < 3:
		return BandToddler
	case id.AgeYears <= 6:
		return BandPreschool
	default:
		return BandSchoolAge
	}
}

// Parameters are the constants derived from an Identity. They have no
// lifecycle of their own and are recomputed whenever the identity changes.
type Parameters struct {
	AgeYears            int     `json:"age_years"`
	AgeMonths           int     `json:"age_months"`
	WeightKg            float64 `json:"weight_kg"`
	WeightEstimated     bool    `json:"weight_estimated"`
	MinUrineOutput      float64 `json:"min_urine_output_ml_hr"`
	NormalSystolicBP    float64 `json:"normal_systolic_bp"`
	NormalHeartRateMin  int     `json:"normal_heart_rate_min"`
	NormalHeartRateMax  int     `json:"normal_heart_rate_max"`
	ETTSize             float64 `json:"ett_size"`
	SuctionCatheterSize float64 `json:"suction_catheter_size"`
}

// Identity returns the identity the parameters were derived from, with the
// resolved weight filled in.
func (p Parameters) Identity() Identity {
	return Identity{AgeYears: p.AgeYears, AgeMonths: p.AgeMonths, WeightKg: p.WeightKg}
}
