package patient

import (
	"fmt"

	"github.com/resus/resus/internal/domain/vitals"
)

type heartRateBand struct {
	min, max int
}

var normalHeartRate = map[AgeBand]heartRateBand{
	BandInfant:    {100, 160},
	BandToddler:   {95, 150},
	BandPreschool: {80, 140},
	BandSchoolAge: {70, 100},
}

// EstimateWeight returns the age-based weight estimate in kg:
//
//	< 12 months:  (months + 9) / 2
//	12-59 months: (years + 4) * 2
//	>= 60 months: years * 4
func EstimateWeight(ageYears, ageMonths int) float64 {
	total := ageYears*12 + ageMonths
	switch {
	case total < 12:
		return float64(total+9) / 2
	case total < 60:
		return float64(ageYears+4) * 2
	default:
		return float64(ageYears) * 4
	}
}

// Calculate derives the patient parameters. weightKg is optional; when nil
// the weight is estimated from age.
func Calculate(ageYears, ageMonths int, weightKg *float64) (Parameters, error) {
	id := Identity{AgeYears: ageYears, AgeMonths: ageMonths}
	if weightKg != nil {
		if *weightKg <= 0 {
			return Parameters{}, fmt.Errorf("%w: weight_kg must be positive", ErrInvalidInput)
		}
		id.WeightKg = *weightKg
	}
	return Derive(id)
}

// Derive computes the parameters for an identity. A zero WeightKg is
// treated as not weighed.
func Derive(id Identity) (Parameters, error) {
	if err := id.Validate(); err != nil {
		return Parameters{}, err
	}

	p := Parameters{
		AgeYears:  id.AgeYears,
		AgeMonths: id.AgeMonths,
		WeightKg:  id.WeightKg,
	}
	if p.WeightKg == 0 {
		p.WeightKg = EstimateWeight(id.AgeYears, id.AgeMonths)
		p.WeightEstimated = true
	}

	urineRate := 1.0 // mL/kg/h
	if id.IsInfant() {
		urineRate = 2.0
	}
	p.MinUrineOutput = vitals.Round(p.WeightKg*urineRate, 1)

	p.NormalSystolicBP = 90 + 2*float64(id.AgeYears)

	hr := normalHeartRate[id.Band()]
	p.NormalHeartRateMin = hr.min
	p.NormalHeartRateMax = hr.max

	p.ETTSize = vitals.Round(float64(id.AgeYears)/4+4, 1)
	p.SuctionCatheterSize = vitals.Round(p.ETTSize*2, 1)

	return p, nil
}
