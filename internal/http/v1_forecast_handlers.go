package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/vitals-forecast-viewer/internal/forecast"
	"github.com/02loveslollipop/vitals-forecast-viewer/internal/plot"
)

// registerV1Routes sets up /api/v1/forecast.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	fc := v1.Group("/forecast")
	{
		fc.GET("/:subject_id/:metric", s.handleV1ForecastPlot)
		fc.GET("/:subject_id/:metric/chart.png", s.handleV1ForecastChart)
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

type forecastParams struct {
	Horizon *int `form:"horizon" binding:"omitempty,min=0"`
	Width   int  `form:"width" binding:"omitempty,min=100,max=4000"`
	Height  int  `form:"height" binding:"omitempty,min=100,max=4000"`
}

// selectSeries runs the shared part of both handlers. It writes the error
// response itself and returns ok=false when the handler should stop.
func (s *Server) selectSeries(c *gin.Context) (forecast.Selection, forecastParams, bool) {
	var params forecastParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return forecast.Selection{}, params, false
	}

	q := forecast.Query{
		SubjectID:   c.Param("subject_id"),
		Metric:      c.Param("metric"),
		HorizonDays: params.Horizon,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	table, err := s.source.Observations(ctx, q.SubjectID, q.Metric)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return forecast.Selection{}, params, false
	}

	sel, ok, err := s.selector.Select(table, q)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return forecast.Selection{}, params, false
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "no data for this selector",
			"subject_id": q.SubjectID,
			"metric":     q.Metric,
		})
		return forecast.Selection{}, params, false
	}
	return sel, params, true
}

// handleV1ForecastPlot returns the plot description as JSON
// GET /api/v1/forecast/:subject_id/:metric
func (s *Server) handleV1ForecastPlot(c *gin.Context) {
	sel, _, ok := s.selectSeries(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sel.Plot(),
		"meta": gin.H{
			"coverage":   sel.Coverage.String(),
			"historical": len(sel.Historical),
			"forecast":   len(sel.Forecast),
			"cutoff":     sel.Cutoff,
		},
	})
}

// handleV1ForecastChart renders the chart as PNG
// GET /api/v1/forecast/:subject_id/:metric/chart.png
func (s *Server) handleV1ForecastChart(c *gin.Context) {
	sel, params, ok := s.selectSeries(c)
	if !ok {
		return
	}

	p := sel.Plot()
	if p.Empty() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no plottable values for this selector"})
		return
	}

	size := plot.Size{Width: s.cfg.ChartWidth, Height: s.cfg.ChartHeight}
	if params.Width > 0 {
		size.Width = params.Width
	}
	if params.Height > 0 {
		size.Height = params.Height
	}

	var buf bytes.Buffer
	if err := plot.Forecast(&buf, p, size); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
