package metric

import (
	"fmt"
	"math"
	"sort"

	"github.com/openphms/admin-api/pkg/errors"
)

// Category groups related metrics for validation and chart feeds.
type Category string

const (
	CategoryVitals       Category = "vitals"
	CategoryGlucose      Category = "glucose"
	CategoryLipids       Category = "lipids"
	CategoryRenal        Category = "renal"
	CategoryHepatic      Category = "hepatic"
	CategoryElectrolytes Category = "electrolytes"
	CategoryHematology   Category = "hematology"
	CategoryThyroid      Category = "thyroid"
	CategoryVitamins     Category = "vitamins"
)

// Definition describes one metric in the fixed catalog: its category, the
// unit values are expressed in, and the inclusive sanity range accepted at
// write time. Ranges are generous screening bounds, not reference intervals.
type Definition struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Unit     string   `json:"unit"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
}

// catalog is the single source of truth for which metrics a snapshot may
// carry. Validation, chart grouping, and the extraction adapter all consult
// this table.
var catalog = map[string]Definition{
	// Vitals
	"bp_systolic":  {Category: CategoryVitals, Unit: "mmHg", Min: 40, Max: 300},
	"bp_diastolic": {Category: CategoryVitals, Unit: "mmHg", Min: 20, Max: 200},
	"heart_rate":   {Category: CategoryVitals, Unit: "bpm", Min: 20, Max: 300},
	"temperature":  {Category: CategoryVitals, Unit: "°C", Min: 25, Max: 45},
	"spo2":         {Category: CategoryVitals, Unit: "%", Min: 0, Max: 100},
	"weight":       {Category: CategoryVitals, Unit: "kg", Min: 0.5, Max: 500},
	"height":       {Category: CategoryVitals, Unit: "cm", Min: 20, Max: 280},
	"bmi":          {Category: CategoryVitals, Unit: "kg/m²", Min: 5, Max: 120},

	// Glucose
	"sugar_fasting":      {Category: CategoryGlucose, Unit: "mg/dL", Min: 10, Max: 1000},
	"sugar_post_meal":    {Category: CategoryGlucose, Unit: "mg/dL", Min: 10, Max: 1000},
	"random_blood_sugar": {Category: CategoryGlucose, Unit: "mg/dL", Min: 10, Max: 1000},
	"hba1c":              {Category: CategoryGlucose, Unit: "%", Min: 2, Max: 25},

	// Lipid profile
	"cholesterol_total": {Category: CategoryLipids, Unit: "mg/dL", Min: 0, Max: 1000},
	"cholesterol_hdl":   {Category: CategoryLipids, Unit: "mg/dL", Min: 0, Max: 300},
	"cholesterol_ldl":   {Category: CategoryLipids, Unit: "mg/dL", Min: 0, Max: 600},
	"triglycerides":     {Category: CategoryLipids, Unit: "mg/dL", Min: 0, Max: 5000},
	"vldl":              {Category: CategoryLipids, Unit: "mg/dL", Min: 0, Max: 300},

	// Renal
	"serum_creatinine": {Category: CategoryRenal, Unit: "mg/dL", Min: 0, Max: 30},
	"blood_urea":       {Category: CategoryRenal, Unit: "mg/dL", Min: 0, Max: 500},
	"bun":              {Category: CategoryRenal, Unit: "mg/dL", Min: 0, Max: 250},
	"egfr":             {Category: CategoryRenal, Unit: "mL/min/1.73m²", Min: 0, Max: 250},

	// Hepatic
	"sgpt_alt":             {Category: CategoryHepatic, Unit: "U/L", Min: 0, Max: 5000},
	"sgot_ast":             {Category: CategoryHepatic, Unit: "U/L", Min: 0, Max: 5000},
	"alkaline_phosphatase": {Category: CategoryHepatic, Unit: "U/L", Min: 0, Max: 3000},
	"total_bilirubin":      {Category: CategoryHepatic, Unit: "mg/dL", Min: 0, Max: 60},
	"direct_bilirubin":     {Category: CategoryHepatic, Unit: "mg/dL", Min: 0, Max: 40},
	"indirect_bilirubin":   {Category: CategoryHepatic, Unit: "mg/dL", Min: 0, Max: 40},

	// Electrolytes
	"sodium":    {Category: CategoryElectrolytes, Unit: "mEq/L", Min: 100, Max: 200},
	"potassium": {Category: CategoryElectrolytes, Unit: "mEq/L", Min: 1, Max: 12},
	"chloride":  {Category: CategoryElectrolytes, Unit: "mEq/L", Min: 60, Max: 150},

	// Hematology (CBC)
	"hemoglobin":            {Category: CategoryHematology, Unit: "g/dL", Min: 1, Max: 30},
	"total_leukocyte_count": {Category: CategoryHematology, Unit: "cells/µL", Min: 100, Max: 500000},
	"platelet_count":        {Category: CategoryHematology, Unit: "x10³/µL", Min: 1, Max: 5000},
	"rbc_count":             {Category: CategoryHematology, Unit: "million/µL", Min: 0.5, Max: 15},
	"pcv":                   {Category: CategoryHematology, Unit: "%", Min: 5, Max: 80},
	"mcv":                   {Category: CategoryHematology, Unit: "fL", Min: 40, Max: 180},

	// Thyroid
	"tsh": {Category: CategoryThyroid, Unit: "µIU/mL", Min: 0, Max: 200},
	"t3":  {Category: CategoryThyroid, Unit: "ng/dL", Min: 0, Max: 1000},
	"t4":  {Category: CategoryThyroid, Unit: "µg/dL", Min: 0, Max: 50},

	// Vitamins
	"vitamin_d":   {Category: CategoryVitamins, Unit: "ng/mL", Min: 0, Max: 300},
	"vitamin_b12": {Category: CategoryVitamins, Unit: "pg/mL", Min: 0, Max: 10000},
}

func init() {
	for name, def := range catalog {
		def.Name = name
		catalog[name] = def
	}
}

// Lookup returns the definition for a metric name.
func Lookup(name string) (Definition, bool) {
	def, ok := catalog[name]
	return def, ok
}

// Names returns all catalog metric names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByCategory returns the metric names in a category, sorted.
func ByCategory(cat Category) []string {
	var names []string
	for name, def := range catalog {
		if def.Category == cat {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Categories returns all known categories, sorted.
func Categories() []Category {
	seen := map[Category]bool{}
	for _, def := range catalog {
		seen[def.Category] = true
	}
	cats := make([]Category, 0, len(seen))
	for cat := range seen {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// ValidCategory reports whether the given name is a known category.
func ValidCategory(name string) bool {
	for _, def := range catalog {
		if def.Category == Category(name) {
			return true
		}
	}
	return false
}

// ValidateValue checks a single metric value against the catalog.
func ValidateValue(name string, value float64) error {
	def, ok := catalog[name]
	if !ok {
		return errors.ValidationField(name, fmt.Sprintf("unknown metric %q", name))
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.ValidationField(name, fmt.Sprintf("%s must be a finite number", name))
	}
	if value < def.Min || value > def.Max {
		return errors.ValidationField(name, fmt.Sprintf(
			"%s out of range: %g not in [%g, %g] %s", name, value, def.Min, def.Max, def.Unit))
	}
	return nil
}

// ValidateMap checks a sparse metric mapping: every key must be in the
// catalog and every value inside its sanity range. An empty map is rejected;
// a snapshot with no metrics is meaningless.
func ValidateMap(metrics map[string]float64) error {
	if len(metrics) == 0 {
		return errors.Validation("at least one health metric is required")
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	// Sorted so the reported field is the same across identical calls.
	sort.Strings(names)
	for _, name := range names {
		if err := ValidateValue(name, metrics[name]); err != nil {
			return err
		}
	}
	return nil
}

// FilterKnown returns a copy of the mapping containing only catalog metrics.
// Used to sanitize adapter output before it is staged for review.
func FilterKnown(metrics map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for name, value := range metrics {
		if _, ok := catalog[name]; ok {
			out[name] = value
		}
	}
	return out
}

// DeriveBMI computes BMI from weight (kg) and height (cm), rounded to two
// decimals. Returns false when either input is absent or height is zero.
func DeriveBMI(metrics map[string]float64) (float64, bool) {
	weight, okW := metrics["weight"]
	height, okH := metrics["height"]
	if !okW || !okH || height <= 0 {
		return 0, false
	}
	m := height / 100
	bmi := weight / (m * m)
	return math.Round(bmi*100) / 100, true
}
