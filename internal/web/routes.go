package web

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	APIKey      string
	CORSOrigins []string
}

// NewRouter wires the pages, the prediction endpoints and their middleware.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(loadTemplates())
	r.Use(requestID(), accessLog(h.log), recovery(h.log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", apiKeyHeader, requestIDHeader},
			ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
		h.log.Info("cors enabled", zap.Strings("origins", opts.CORSOrigins))
	}

	r.GET("/", h.index)
	r.GET("/health", h.health)
	r.GET("/schema", h.schema)
	r.GET("/predictdata", h.predictForm)
	r.GET("/predictbulk", h.bulkForm)

	api := r.Group("/")
	api.Use(apiKey(opts.APIKey), limitBody(h.maxUpload))
	api.POST("/predictdata", h.predictData)
	api.POST("/predictbulk", h.predictBulk)

	return r
}
