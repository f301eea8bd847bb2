package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"studentscore/internal/apperr"
	"studentscore/internal/data"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	formatHTML = "html"
	formatJSON = "json"
	formatXLSX = "xlsx"

	xlsxSheet = "Predictions"
	xlsxMIME  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var templateFuncs = template.FuncMap{
	"list": func(v ...string) []string { return v },
}

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}

type errorView struct {
	Kind    string
	Message string
	Details []string
}

type errorSetter interface {
	withError(*errorView) any
}

type formPage struct {
	Form   predictForm
	Result string
	Error  *errorView
}

func (p formPage) withError(e *errorView) any { p.Error = e; return p }

type bulkPage struct {
	Columns []string
	Rows    [][]string
	Count   int
	Error   *errorView
}

func (p bulkPage) withError(e *errorView) any { p.Error = e; return p }

// genericMessages is shown for errors that carry no client-safe message.
var genericMessages = map[apperr.Kind]string{
	apperr.KindInput:    "The request could not be processed.",
	apperr.KindTooLarge: "The upload is too large.",
	apperr.KindSchema:   "The data does not match what the model expects.",
	apperr.KindArtifact: "The prediction model is not available right now.",
	apperr.KindInternal: "Something went wrong while making the prediction.",
}

// clientError splits err into what may be shown to a client. Untagged errors
// only ever produce the generic internal message.
func clientError(err error) (apperr.Kind, string, any) {
	e, ok := apperr.As(err)
	if !ok {
		return apperr.KindInternal, genericMessages[apperr.KindInternal], nil
	}
	msg := e.Message
	if msg == "" {
		msg = genericMessages[e.Kind]
	}
	return e.Kind, msg, e.Details
}

func newErrorView(err error) *errorView {
	kind, msg, details := clientError(err)
	return &errorView{Kind: string(kind), Message: msg, Details: detailLines(details)}
}

func writeJSONError(c *gin.Context, err error) {
	kind, msg, details := clientError(err)
	body := gin.H{"error": kind, "message": msg}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(apperr.Status(kind), body)
}

// detailLines flattens structured details into "key: a, b" lines.
func detailLines(d any) []string {
	m, ok := d.(map[string]any)
	if !ok {
		if d == nil {
			return nil
		}
		return []string{fmt.Sprint(d)}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := m[k].(type) {
		case []string:
			lines = append(lines, k+": "+strings.Join(v, ", "))
		default:
			lines = append(lines, fmt.Sprintf("%s: %v", k, v))
		}
	}
	return lines
}

// requestedFormat reads format from the query or an already parsed form body
// and falls back to the Accept header. It never parses the body itself.
func requestedFormat(c *gin.Context) string {
	if f := c.Query("format"); f != "" {
		return strings.ToLower(f)
	}
	if mf := c.Request.MultipartForm; mf != nil {
		if v := mf.Value["format"]; len(v) > 0 && v[0] != "" {
			return strings.ToLower(v[0])
		}
	}
	if f := c.Request.PostForm.Get("format"); f != "" {
		return strings.ToLower(f)
	}
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		return formatJSON
	}
	return formatHTML
}

func validFormat(f string) bool {
	switch f {
	case formatHTML, formatJSON, formatXLSX:
		return true
	}
	return false
}

// writeXLSX sends t as a single sheet workbook. Numeric cells are written as
// numbers so spreadsheet formulas work on them.
func writeXLSX(c *gin.Context, t *data.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	for j, col := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, col); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	for i, row := range t.Rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("xlsx row %d: %w", i+1, err)
			}
			if err := f.SetCellValue(xlsxSheet, cell, data.Cell(v)); err != nil {
				return fmt.Errorf("xlsx row %d: %w", i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	name := fmt.Sprintf("predictions_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
	return nil
}
