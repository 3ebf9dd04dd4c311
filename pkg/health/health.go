// Package health computes body-mass index, basal metabolic rate and daily
// calorie needs.
package health

import (
	"fmt"
	"strings"
)

// Category is a BMI classification using the Asia-Pacific cut-offs.
type Category string

const (
	Underweight   Category = "underweight"
	Normal        Category = "normal"
	Overweight    Category = "overweight"
	Obese         Category = "obese"
	SeverelyObese Category = "severely-obese"
)

// Sex selects the BMR constant.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// ParseSex accepts male/female, m/f and 남/여.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "남", "남성":
		return Male, nil
	case "female", "f", "여", "여성":
		return Female, nil
	}
	return "", fmt.Errorf("unknown sex %q", s)
}

// ActivityLevel scales BMR into total daily energy expenditure.
type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very-active"
)

var activityMultipliers = map[ActivityLevel]float64{
	Sedentary:  1.2,
	Light:      1.375,
	Moderate:   1.55,
	Active:     1.725,
	VeryActive: 1.9,
}

// Multiplier returns the TDEE multiplier; unknown levels are treated as sedentary.
func (a ActivityLevel) Multiplier() float64 {
	if m, ok := activityMultipliers[a]; ok {
		return m
	}
	return activityMultipliers[Sedentary]
}

// BMI returns weight / height² with height in centimeters. A non-positive height yields 0.
func BMI(weightKg, heightCm float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return 0
	}
	m := heightCm / 100
	return weightKg / (m * m)
}

// Classify maps a BMI to its category.
func Classify(bmi float64) Category {
	switch {
	case bmi < 18.5:
		return Underweight
	case bmi < 23:
		return Normal
	case bmi < 25:
		return Overweight
	case bmi < 30:
		return Obese
	}
	return SeverelyObese
}

// HealthyWeightRange returns the weights that keep BMI within [18.5, 23).
func HealthyWeightRange(heightCm float64) (low, high float64) {
	if heightCm <= 0 {
		return 0, 0
	}
	m := heightCm / 100
	return 18.5 * m * m, 23 * m * m
}

// BMR uses the Mifflin-St Jeor equation. Non-positive inputs yield 0.
func BMR(sex Sex, weightKg, heightCm float64, ageYears int) float64 {
	if weightKg <= 0 || heightCm <= 0 || ageYears <= 0 {
		return 0
	}
	base := 10*weightKg + 6.25*heightCm - 5*float64(ageYears)
	if sex == Female {
		return base - 161
	}
	return base + 5
}

// DailyCalories returns the maintenance calories for an activity level.
func DailyCalories(bmr float64, level ActivityLevel) float64 {
	return bmr * level.Multiplier()
}
