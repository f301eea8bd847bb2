package web

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"studentscore/internal/apperr"
	"studentscore/internal/data"
)

var validate = validator.New()

// predictForm mirrors the HTML form. Scores stay strings here so a bad value
// can be echoed back and reported as a parse error rather than a bind error.
type predictForm struct {
	Gender                   string `form:"gender" binding:"required"`
	Ethnicity                string `form:"ethnicity" binding:"required"`
	ParentalLevelOfEducation string `form:"parental_level_of_education" binding:"required"`
	Lunch                    string `form:"lunch" binding:"required"`
	TestPreparationCourse    string `form:"test_preparation_course" binding:"required"`
	WritingScore             string `form:"writing_score" binding:"required"`
	ReadingScore             string `form:"reading_score" binding:"required"`
}

var formFields = map[string]string{
	"Gender":                   "gender",
	"Ethnicity":                "ethnicity",
	"ParentalLevelOfEducation": "parental_level_of_education",
	"Lunch":                    "lunch",
	"TestPreparationCourse":    "test_preparation_course",
	"WritingScore":             "writing_score",
	"ReadingScore":             "reading_score",
}

func decodeForm(c *gin.Context, f *predictForm) (data.StudentRecord, error) {
	if err := c.ShouldBind(f); err != nil {
		if tooLarge := bodyTooLarge(err); tooLarge != nil {
			return data.StudentRecord{}, tooLarge
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return data.StudentRecord{}, apperr.Input("could not read the form", err)
		}
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, formFields[fe.StructField()])
		}
		return data.StudentRecord{}, missingFields(missing, err)
	}
	if blank := f.blankCategoricals(); len(blank) > 0 {
		return data.StudentRecord{}, missingFields(blank, nil)
	}

	writing, err := parseScore("writing_score", f.WritingScore)
	if err != nil {
		return data.StudentRecord{}, err
	}
	reading, err := parseScore("reading_score", f.ReadingScore)
	if err != nil {
		return data.StudentRecord{}, err
	}
	return data.StudentRecord{
		Gender:                   strings.TrimSpace(f.Gender),
		RaceEthnicity:            strings.TrimSpace(f.Ethnicity),
		ParentalLevelOfEducation: strings.TrimSpace(f.ParentalLevelOfEducation),
		Lunch:                    strings.TrimSpace(f.Lunch),
		TestPreparationCourse:    strings.TrimSpace(f.TestPreparationCourse),
		WritingScore:             writing,
		ReadingScore:             reading,
	}, nil
}

// blankCategoricals lists the categorical fields that are empty once trimmed.
func (f *predictForm) blankCategoricals() []string {
	var blank []string
	for _, fv := range []struct{ name, value string }{
		{"gender", f.Gender},
		{"ethnicity", f.Ethnicity},
		{"parental_level_of_education", f.ParentalLevelOfEducation},
		{"lunch", f.Lunch},
		{"test_preparation_course", f.TestPreparationCourse},
	} {
		if strings.TrimSpace(fv.value) == "" {
			blank = append(blank, fv.name)
		}
	}
	return blank
}

func missingFields(names []string, cause error) error {
	sort.Strings(names)
	return apperr.Input("required fields are missing", cause).
		WithDetails(map[string]any{"missing": names})
}

func parseScore(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = strconv.ErrSyntax
	}
	if err != nil {
		return 0, apperr.Input(field+" must be a number", err).
			WithDetails(map[string]any{"field": field, "reason": "parse"})
	}
	if err := validate.Var(v, "gte=0,lte=100"); err != nil {
		return 0, apperr.Input(field+" must be between 0 and 100", err).
			WithDetails(map[string]any{"field": field, "reason": "range"})
	}
	return v, nil
}
