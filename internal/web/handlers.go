// Package web serves the prediction pages and upload endpoint over gin.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studentscore/internal/apperr"
	"studentscore/internal/data"
	"studentscore/internal/features"
)

//go:generate mockgen -destination=predictor_mock_test.go -package=web . Predictor

// Predictor scores a batch of feature rows. *predict.Store and
// *predict.Pipeline both satisfy it.
type Predictor interface {
	Predict(ctx context.Context, batch *data.Table) ([]float64, error)
	Ready() bool
	ModelName() string
	Schema() features.Schema
}

type Handler struct {
	predictor Predictor
	staging   *Staging
	log       *zap.Logger
	maxUpload int64
}

func NewHandler(p Predictor, staging *Staging, log *zap.Logger, maxUpload int64) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{predictor: p, staging: staging, log: log, maxUpload: maxUpload}
}

func (h *Handler) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Model": h.predictor.ModelName()})
}

func (h *Handler) predictForm(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", formPage{})
}

func (h *Handler) predictData(c *gin.Context) {
	var f predictForm
	rec, err := decodeForm(c, &f)
	if err != nil {
		h.fail(c, "home.html", formPage{Form: f}, err)
		return
	}
	preds, err := h.predictor.Predict(c.Request.Context(), rec.AsTable())
	if err != nil {
		h.fail(c, "home.html", formPage{Form: f}, err)
		return
	}
	if len(preds) != 1 {
		h.fail(c, "home.html", formPage{Form: f}, apperr.New(apperr.KindArtifact, "model returned no prediction"))
		return
	}
	if requestedFormat(c) == formatJSON {
		c.JSON(http.StatusOK, gin.H{"prediction": preds[0], "model": h.predictor.ModelName()})
		return
	}
	c.HTML(http.StatusOK, "home.html", formPage{
		Form:   f,
		Result: strconv.FormatFloat(preds[0], 'f', 2, 64),
	})
}

func (h *Handler) bulkForm(c *gin.Context) {
	c.HTML(http.StatusOK, "bulk_predict.html", bulkPage{})
}

func (h *Handler) predictBulk(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, "bulk_predict.html", bulkPage{}, uploadErr(err))
		return
	}
	format := requestedFormat(c)
	if !validFormat(format) {
		h.fail(c, "bulk_predict.html", bulkPage{}, apperr.New(apperr.KindInput, "unknown output format").
			WithDetails(map[string]any{"format": format}))
		return
	}

	staged, err := h.staging.Stage(fh)
	if err != nil {
		h.fail(c, "bulk_predict.html", bulkPage{}, err)
		return
	}
	defer func() {
		if err := staged.Remove(); err != nil {
			h.log.Warn("remove staged upload", zap.String("path", staged.Path), zap.Error(err))
		}
	}()

	table, err := staged.Table()
	if err != nil {
		h.fail(c, "bulk_predict.html", bulkPage{}, err)
		return
	}
	preds, err := h.predictor.Predict(c.Request.Context(), table)
	if err != nil {
		h.fail(c, "bulk_predict.html", bulkPage{}, err)
		return
	}
	if err := table.SetFloatColumn(data.ColPredictions, preds); err != nil {
		h.fail(c, "bulk_predict.html", bulkPage{}, apperr.Artifact("model output does not match the upload", err))
		return
	}
	h.log.Info("bulk prediction",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("file", staged.Name),
		zap.Int("rows", table.Len()),
		zap.String("format", format))

	switch format {
	case formatJSON:
		c.JSON(http.StatusOK, gin.H{"count": table.Len(), "results": table.Records()})
	case formatXLSX:
		if err := writeXLSX(c, table); err != nil {
			h.fail(c, "bulk_predict.html", bulkPage{}, err)
		}
	default:
		c.HTML(http.StatusOK, "bulk_predict.html", bulkPage{
			Columns: table.Columns,
			Rows:    table.Rows,
			Count:   table.Len(),
		})
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"ready":  h.predictor.Ready(),
		"model":  h.predictor.ModelName(),
	})
}

func (h *Handler) schema(c *gin.Context) {
	if !h.predictor.Ready() {
		writeJSONError(c, apperr.New(apperr.KindArtifact, "no pipeline loaded"))
		return
	}
	s := h.predictor.Schema()
	c.JSON(http.StatusOK, gin.H{
		"model":       h.predictor.ModelName(),
		"categorical": s.Categorical,
		"numeric":     s.Numeric,
	})
}

// fail logs err and renders it on page, or as JSON when the client asked for it.
func (h *Handler) fail(c *gin.Context, page string, view errorSetter, err error) {
	kind := apperr.KindOf(err)
	fields := []zap.Field{
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("path", c.FullPath()),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if apperr.Status(kind) >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
	} else {
		h.log.Info("request rejected", fields...)
	}

	if requestedFormat(c) == formatJSON {
		writeJSONError(c, err)
		return
	}
	c.HTML(apperr.Status(kind), page, view.withError(newErrorView(err)))
}

// bodyTooLarge tags err when it came from the request body limit and
// returns nil otherwise.
func bodyTooLarge(err error) *apperr.Error {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return nil
	}
	return apperr.Wrap(apperr.KindTooLarge, "request body exceeds the size limit", err).
		WithDetails(map[string]any{"limit_bytes": tooLarge.Limit})
}

func uploadErr(err error) error {
	if tooLarge := bodyTooLarge(err); tooLarge != nil {
		return tooLarge
	}
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return apperr.Input("no file uploaded", err)
	}
	return apperr.Input("could not read the upload", err)
}
