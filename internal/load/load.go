// Package load estimates physiological training load and aerobic fitness.
// The estimates are informational and never feed the pace adjustments.
package load

import "math"

// Sex selects the TRIMP weighting coefficient.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Banister weighting coefficients.
const (
	maleCoefficient   = 1.92
	femaleCoefficient = 1.67
)

// TRIMP returns Banister's training impulse for a session of durationMin
// minutes at avgHR. It returns 0 when the heart-rate reserve is undefined.
func TRIMP(durationMin, avgHR, restingHR, maxHR float64, male bool) float64 {
	if restingHR <= 0 || maxHR <= 0 || avgHR <= restingHR || maxHR <= restingHR {
		return 0
	}
	reserve := (avgHR - restingHR) / (maxHR - restingHR)
	k := femaleCoefficient
	if male {
		k = maleCoefficient
	}
	return durationMin * reserve * 0.64 * math.Exp(k*reserve)
}

// SessionTRIMP is TRIMP for a session given in seconds.
func SessionTRIMP(movingSeconds int, avgHR float64, a Athlete) float64 {
	return TRIMP(float64(movingSeconds)/60, avgHR, a.RestingHR, a.MaxHR, a.Sex != Female)
}

// Athlete holds the per-runner constants the estimators need.
type Athlete struct {
	RestingHR float64 `yaml:"resting_hr" json:"resting_hr"`
	MaxHR     float64 `yaml:"max_hr" json:"max_hr"`
	Sex       Sex     `yaml:"sex" json:"sex"`
}

// VO2MaxFromRace estimates VO2max (ml/kg/min) from a race result using the
// oxygen cost of running at the race velocity in km/h.
func VO2MaxFromRace(distanceMeters, timeSeconds float64) float64 {
	if distanceMeters <= 0 || timeSeconds <= 0 {
		return 0
	}
	v := (distanceMeters / 1000) / (timeSeconds / 3600)
	vo2 := -4.60 + 3.03763*v + 0.028889*v*v
	if vo2 < 0 {
		return 0
	}
	return vo2
}

// VO2MaxFromHR is the Uth-Sorensen heart-rate ratio estimate.
func VO2MaxFromHR(restingHR, maxHR float64) float64 {
	if restingHR <= 0 || maxHR <= 0 {
		return 0
	}
	return 15.3 * (maxHR / restingHR)
}
