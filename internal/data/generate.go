package data

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

var genders = []string{"female", "male"}
var groups = []string{"group A", "group B", "group C", "group D", "group E"}
var educationLevels = []string{"some high school", "high school", "some college", "associate's degree", "bachelor's degree", "master's degree"}
var lunches = []string{"standard", "free/reduced"}
var preparation = []string{"none", "completed"}

var groupWeights = []float64{0.09, 0.19, 0.32, 0.26, 0.14}
var groupEffect = []float64{-2.5, -1.5, 0, 1, 4.5}
var educationEffect = []float64{-1.5, -2, 0, 1, 2, 3}

// SyntheticStudents builds a labelled dataset with the feature columns plus
// math_score. The same seed always yields the same table.
func SyntheticStudents(n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	t := &Table{
		Columns: []string{
			ColGender, ColRaceEthnicity, ColParentalEducation, ColLunch, ColTestPreparation,
			ColMathScore, ColReadingScore, ColWritingScore,
		},
		Rows: make([][]string, 0, n),
	}
	for i := 0; i < n; i++ {
		g := rng.Intn(len(genders))
		grp := weightedIndex(rng, groupWeights)
		edu := rng.Intn(len(educationLevels))
		lunch := 0
		if rng.Float64() < 0.35 {
			lunch = 1
		}
		prep := 0
		if rng.Float64() < 0.36 {
			prep = 1
		}

		reading := rng.NormFloat64()*13 + 69 + groupEffect[grp] + educationEffect[edu]
		if g == 1 {
			reading -= 7
		}
		if lunch == 1 {
			reading -= 7
		}
		if prep == 1 {
			reading += 6
		}
		reading = clampScore(reading)
		writing := reading + rng.NormFloat64()*4.5 - 1
		if g == 0 {
			writing += 2
		}
		if prep == 1 {
			writing += 3
		}
		writing = clampScore(writing)

		mathScore := -10 + 0.6*reading + 0.4*writing + rng.NormFloat64()*5 + groupEffect[grp]
		if g == 1 {
			mathScore += 13
		}
		if lunch == 0 {
			mathScore += 3.5
		}
		if prep == 1 {
			mathScore -= 3
		}
		mathScore = clampScore(mathScore)

		t.Rows = append(t.Rows, []string{
			genders[g],
			groups[grp],
			educationLevels[edu],
			lunches[lunch],
			preparation[prep],
			strconv.Itoa(int(mathScore)),
			strconv.Itoa(int(reading)),
			strconv.Itoa(int(writing)),
		})
	}
	return t
}

// GenerateSyntheticStudents writes SyntheticStudents(n, seed) to outPath.
func GenerateSyntheticStudents(n int, seed int64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := SyntheticStudents(n, seed).WriteCSV(f); err != nil {
		return err
	}
	return f.Close()
}

func weightedIndex(rng *rand.Rand, weights []float64) int {
	r := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, math.Round(v)))
}
