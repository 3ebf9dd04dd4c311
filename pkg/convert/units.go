// Package convert converts values between units of one category through a
// shared base unit, and between currencies through KRW.
package convert

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownUnit is returned when a unit is not part of a category.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrUnknownCategory is returned for an unregistered category name.
	ErrUnknownCategory = errors.New("unknown category")
)

// Unit is one unit of a category. FactorToBase is how many base units one of
// this unit is worth. ToBase and FromBase, when both set, replace the factor
// for non-linear units.
type Unit struct {
	Name         string
	Symbol       string
	FactorToBase float64
	ToBase       func(float64) float64
	FromBase     func(float64) float64
}

func (u Unit) toBase(value float64) float64 {
	if u.ToBase != nil && u.FromBase != nil {
		return u.ToBase(value)
	}
	return value * u.FactorToBase
}

func (u Unit) fromBase(value float64) float64 {
	if u.ToBase != nil && u.FromBase != nil {
		return u.FromBase(value)
	}
	return value / u.FactorToBase
}

// Category groups units that share a base unit.
type Category struct {
	Name  string
	Base  string
	Units map[string]Unit
}

// Convert converts value between two factor-defined units.
func Convert(value, fromFactor, toFactor float64) float64 {
	if toFactor == 0 {
		return 0
	}
	return value * fromFactor / toFactor
}

// Convert converts value from one unit of c to another. Unit keys are matched case-insensitively.
func (c Category) Convert(value float64, from, to string) (float64, error) {
	fromUnit, err := c.Unit(from)
	if err != nil {
		return 0, err
	}
	toUnit, err := c.Unit(to)
	if err != nil {
		return 0, err
	}
	if fromUnit.ToBase == nil && toUnit.ToBase == nil {
		return Convert(value, fromUnit.FactorToBase, toUnit.FactorToBase), nil
	}
	return toUnit.fromBase(fromUnit.toBase(value)), nil
}

// Unit looks up a unit by key.
func (c Category) Unit(key string) (Unit, error) {
	unit, ok := c.Units[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Unit{}, fmt.Errorf("%w %q in category %s", ErrUnknownUnit, key, c.Name)
	}
	return unit, nil
}

// UnitKeys returns the category's unit keys in sorted order.
func (c Category) UnitKeys() []string {
	keys := make([]string, 0, len(c.Units))
	for key := range c.Units {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Categories holds the built-in categories keyed by name.
var Categories = map[string]Category{
	"length": {
		Name: "length",
		Base: "m",
		Units: map[string]Unit{
			"mm": {Name: "millimeter", Symbol: "mm", FactorToBase: 0.001},
			"cm": {Name: "centimeter", Symbol: "cm", FactorToBase: 0.01},
			"m":  {Name: "meter", Symbol: "m", FactorToBase: 1},
			"km": {Name: "kilometer", Symbol: "km", FactorToBase: 1000},
			"in": {Name: "inch", Symbol: "in", FactorToBase: 0.0254},
			"ft": {Name: "foot", Symbol: "ft", FactorToBase: 0.3048},
			"yd": {Name: "yard", Symbol: "yd", FactorToBase: 0.9144},
			"mi": {Name: "mile", Symbol: "mi", FactorToBase: 1609.344},
			"ja": {Name: "ja", Symbol: "자", FactorToBase: 10.0 / 33.0},
		},
	},
	"weight": {
		Name: "weight",
		Base: "g",
		Units: map[string]Unit{
			"mg":   {Name: "milligram", Symbol: "mg", FactorToBase: 0.001},
			"g":    {Name: "gram", Symbol: "g", FactorToBase: 1},
			"kg":   {Name: "kilogram", Symbol: "kg", FactorToBase: 1000},
			"t":    {Name: "tonne", Symbol: "t", FactorToBase: 1_000_000},
			"oz":   {Name: "ounce", Symbol: "oz", FactorToBase: 28.349523125},
			"lb":   {Name: "pound", Symbol: "lb", FactorToBase: 453.59237},
			"don":  {Name: "don", Symbol: "돈", FactorToBase: 3.75},
			"geun": {Name: "geun", Symbol: "근", FactorToBase: 600},
		},
	},
	"area": {
		Name: "area",
		Base: "m2",
		Units: map[string]Unit{
			"m2":      {Name: "square meter", Symbol: "m²", FactorToBase: 1},
			"km2":     {Name: "square kilometer", Symbol: "km²", FactorToBase: 1_000_000},
			"ft2":     {Name: "square foot", Symbol: "ft²", FactorToBase: 0.09290304},
			"acre":    {Name: "acre", Symbol: "ac", FactorToBase: 4046.8564224},
			"hectare": {Name: "hectare", Symbol: "ha", FactorToBase: 10_000},
			"pyeong":  {Name: "pyeong", Symbol: "평", FactorToBase: 400.0 / 121.0},
		},
	},
	"volume": {
		Name: "volume",
		Base: "l",
		Units: map[string]Unit{
			"ml":   {Name: "milliliter", Symbol: "mL", FactorToBase: 0.001},
			"l":    {Name: "liter", Symbol: "L", FactorToBase: 1},
			"m3":   {Name: "cubic meter", Symbol: "m³", FactorToBase: 1000},
			"gal":  {Name: "US gallon", Symbol: "gal", FactorToBase: 3.785411784},
			"cup":  {Name: "US cup", Symbol: "cup", FactorToBase: 0.2365882365},
			"floz": {Name: "US fluid ounce", Symbol: "fl oz", FactorToBase: 0.0295735295625},
		},
	},
	"speed": {
		Name: "speed",
		Base: "mps",
		Units: map[string]Unit{
			"mps":  {Name: "meter per second", Symbol: "m/s", FactorToBase: 1},
			"kmh":  {Name: "kilometer per hour", Symbol: "km/h", FactorToBase: 1000.0 / 3600.0},
			"mph":  {Name: "mile per hour", Symbol: "mph", FactorToBase: 1609.344 / 3600.0},
			"knot": {Name: "knot", Symbol: "kn", FactorToBase: 1852.0 / 3600.0},
		},
	},
	"data": {
		Name: "data",
		Base: "b",
		Units: map[string]Unit{
			"b":  {Name: "byte", Symbol: "B", FactorToBase: 1},
			"kb": {Name: "kilobyte", Symbol: "KB", FactorToBase: 1024},
			"mb": {Name: "megabyte", Symbol: "MB", FactorToBase: 1024 * 1024},
			"gb": {Name: "gigabyte", Symbol: "GB", FactorToBase: 1024 * 1024 * 1024},
			"tb": {Name: "terabyte", Symbol: "TB", FactorToBase: 1024 * 1024 * 1024 * 1024},
		},
	},
	"temperature": {
		Name: "temperature",
		Base: "c",
		Units: map[string]Unit{
			"c": {Name: "celsius", Symbol: "°C", FactorToBase: 1},
			"f": {
				Name:     "fahrenheit",
				Symbol:   "°F",
				ToBase:   func(v float64) float64 { return (v - 32) * 5 / 9 },
				FromBase: func(v float64) float64 { return v*9/5 + 32 },
			},
			"k": {
				Name:     "kelvin",
				Symbol:   "K",
				ToBase:   func(v float64) float64 { return v - 273.15 },
				FromBase: func(v float64) float64 { return v + 273.15 },
			},
		},
	},
}

// CategoryNames returns the registered category names in sorted order.
func CategoryNames() []string {
	names := make([]string, 0, len(Categories))
	for name := range Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConvertIn converts value within the named category.
func ConvertIn(category string, value float64, from, to string) (float64, error) {
	c, ok := Categories[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownCategory, category)
	}
	return c.Convert(value, from, to)
}
