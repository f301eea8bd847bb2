package data

import "strconv"

// Feature and target column names shared by the form, the CSV ingester and the
// preprocessor artifact.
const (
	ColGender            = "gender"
	ColRaceEthnicity     = "race_ethnicity"
	ColParentalEducation = "parental_level_of_education"
	ColLunch             = "lunch"
	ColTestPreparation   = "test_preparation_course"
	ColReadingScore      = "reading_score"
	ColWritingScore      = "writing_score"
	ColMathScore         = "math_score"

	ColPredictions = "Predictions"
)

var CategoricalColumns = []string{ColGender, ColRaceEthnicity, ColParentalEducation, ColLunch, ColTestPreparation}
var NumericColumns = []string{ColReadingScore, ColWritingScore}

// StudentRecord is a single observation submitted through the prediction form.
type StudentRecord struct {
	Gender                   string  `json:"gender"`
	RaceEthnicity            string  `json:"race_ethnicity"`
	ParentalLevelOfEducation string  `json:"parental_level_of_education"`
	Lunch                    string  `json:"lunch"`
	TestPreparationCourse    string  `json:"test_preparation_course"`
	ReadingScore             float64 `json:"reading_score"`
	WritingScore             float64 `json:"writing_score"`
}

// AsTable wraps the record as a one-row table with the canonical column order.
func (s StudentRecord) AsTable() *Table {
	return &Table{
		Columns: []string{
			ColGender, ColRaceEthnicity, ColParentalEducation, ColLunch, ColTestPreparation,
			ColReadingScore, ColWritingScore,
		},
		Rows: [][]string{{
			s.Gender, s.RaceEthnicity, s.ParentalLevelOfEducation, s.Lunch, s.TestPreparationCourse,
			strconv.FormatFloat(s.ReadingScore, 'f', -1, 64),
			strconv.FormatFloat(s.WritingScore, 'f', -1, 64),
		}},
	}
}
