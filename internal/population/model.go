// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package population

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pdiddy/citysim/pkg/types"
)

const (
	minYear = 1900
	maxYear = 2100

	// Rent bases are in 2000 dollars and inflated to the reference year.
	rentBaseYear  = 2000
	rentInflation = 0.025
	rentSigma     = 0.25

	minAge = 18
	maxAge = 85
)

// weighted is a categorical distribution over string values.
type weighted struct {
	values  []string
	weights []float64
	total   float64
}

// choice is one value of a weighted table.
type choice struct {
	value  string
	weight float64
}

func newWeighted(choices []choice) weighted {
	var w weighted
	for _, c := range choices {
		w.values = append(w.values, c.value)
		w.weights = append(w.weights, c.weight)
		w.total += c.weight
	}
	return w
}

func (w weighted) sample(rng *rand.Rand) string {
	x := rng.Float64() * w.total
	for i, weight := range w.weights {
		if x < weight {
			return w.values[i]
		}
		x -= weight
	}
	return w.values[len(w.values)-1]
}

// neighborhood pairs a district name with its median 2000 rent.
type neighborhood struct {
	name string
	rent float64
}

// YearModel is the default AttributeModel. It draws education first,
// conditions occupation on education, and prices rent by neighborhood
// with inflation to the reference year.
type YearModel struct {
	neighborhoods []neighborhood
	hoods         weighted

	sex        weighted
	race       weighted
	education  []float64
	occupation map[types.Education]weighted

	FirstNames []string
	LastNames  []string
}

// NewYearModel returns a YearModel with the built-in city tables.
func NewYearModel() *YearModel {
	m := &YearModel{
		neighborhoods: []neighborhood{
			{"Downtown", 1150},
			{"Riverside", 820},
			{"Old Town", 690},
			{"Hillcrest", 1400},
			{"Eastgate", 560},
			{"Harbor", 740},
		},
		sex:  newWeighted([]choice{{string(types.SexFemale), 0.51}, {string(types.SexMale), 0.49}}),
		race: newWeighted([]choice{{"white", 0.60}, {"black", 0.13}, {"hispanic", 0.18}, {"asian", 0.06}, {"other", 0.03}}),
		// Indexed by Education.
		education: []float64{0.10, 0.28, 0.21, 0.26, 0.15},
		occupation: map[types.Education]weighted{
			types.EducationNone:        newWeighted([]choice{{"service", 0.45}, {"labor", 0.35}, {"sales", 0.10}, {"unemployed", 0.10}}),
			types.EducationHighSchool:  newWeighted([]choice{{"service", 0.30}, {"labor", 0.30}, {"sales", 0.20}, {"clerical", 0.12}, {"unemployed", 0.08}}),
			types.EducationSomeCollege: newWeighted([]choice{{"service", 0.20}, {"sales", 0.25}, {"clerical", 0.25}, {"technical", 0.20}, {"unemployed", 0.10}}),
			types.EducationBachelors:   newWeighted([]choice{{"professional", 0.40}, {"technical", 0.25}, {"management", 0.20}, {"sales", 0.10}, {"unemployed", 0.05}}),
			types.EducationGraduate:    newWeighted([]choice{{"professional", 0.55}, {"management", 0.25}, {"academic", 0.15}, {"unemployed", 0.05}}),
		},
		FirstNames: []string{
			"Ada", "Ben", "Cora", "Dev", "Elena", "Femi", "Grace", "Hiro", "Ines", "Jonah",
			"Kira", "Luis", "Maya", "Nate", "Olga", "Priya", "Quinn", "Rosa", "Sam", "Tomas",
		},
		LastNames: []string{
			"Abbott", "Baker", "Chen", "Diaz", "Evans", "Fischer", "Garcia", "Hughes", "Ito", "Jones",
			"Khan", "Lopez", "Moreau", "Nguyen", "Okafor", "Patel", "Reyes", "Silva", "Turner", "Walsh",
		},
	}
	hoods := make([]choice, 0, len(m.neighborhoods))
	for _, n := range m.neighborhoods {
		hoods = append(hoods, choice{n.name, 1})
	}
	m.hoods = newWeighted(hoods)
	return m
}

// Generate implements AttributeModel.
func (m *YearModel) Generate(year int, rng *rand.Rand) (string, types.Attributes, error) {
	if year < minYear || year > maxYear {
		return "", types.Attributes{}, fmt.Errorf("reference year %d outside [%d, %d]", year, minYear, maxYear)
	}

	edu := m.sampleEducation(rng)
	occ, ok := m.occupation[edu]
	if !ok {
		return "", types.Attributes{}, fmt.Errorf("no occupation table for education %s", edu)
	}

	hood := m.hoods.sample(rng)
	age := minAge + rng.IntN(maxAge-minAge+1)

	attrs := types.Attributes{
		Occupation:   occ.sample(rng),
		Sex:          types.Sex(m.sex.sample(rng)),
		Race:         m.race.sample(rng),
		Neighborhood: hood,
		Education:    edu,
		Rent:         m.sampleRent(hood, year, rng),
		Age:          age,
		BirthYear:    year - age,
	}
	name := m.FirstNames[rng.IntN(len(m.FirstNames))] + " " + m.LastNames[rng.IntN(len(m.LastNames))]
	return name, attrs, nil
}

func (m *YearModel) sampleEducation(rng *rand.Rand) types.Education {
	x := rng.Float64()
	for i, p := range m.education {
		if x < p {
			return types.Education(i)
		}
		x -= p
	}
	return types.Education(len(m.education) - 1)
}

// sampleRent draws a log-normal rent around the neighborhood median,
// rounded to whole dollars.
func (m *YearModel) sampleRent(hood string, year int, rng *rand.Rand) float64 {
	base := 0.0
	for _, n := range m.neighborhoods {
		if n.name == hood {
			base = n.rent
			break
		}
	}
	median := base * math.Pow(1+rentInflation, float64(year-rentBaseYear))
	return math.Round(median * math.Exp(rng.NormFloat64()*rentSigma))
}
