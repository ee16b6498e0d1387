package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/classifier"
	"github.com/pageza/foodscan/backend/internal/middleware"
	"github.com/pageza/foodscan/backend/internal/service"
	"github.com/pageza/foodscan/backend/internal/types"
)

// AnalysisHandler serves photo analyses.
type AnalysisHandler struct {
	analysis    service.AnalysisServiceInterface
	rateLimiter *middleware.RateLimiter
	maxUpload   int64
	logger      *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler. rateLimiter may be nil.
func NewAnalysisHandler(analysis service.AnalysisServiceInterface, rateLimiter *middleware.RateLimiter, maxUpload int64, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{
		analysis:    analysis,
		rateLimiter: rateLimiter,
		maxUpload:   maxUpload,
		logger:      logger,
	}
}

// AnalyzeForm is the non-file part of the multipart request.
type AnalyzeForm struct {
	Height   float64 `form:"height"`
	Weight   float64 `form:"weight"`
	Diseases string  `form:"diseases"`
}

// RegisterRoutes registers the analysis routes
func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup) {
	if h.rateLimiter != nil {
		router.POST("/analyze", h.rateLimiter.Middleware(), h.Analyze)
		return
	}
	router.POST("/analyze", h.Analyze)
}

// Analyze identifies the pictured food and scores it for the submitted profile.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var form AnalyzeForm
	if err := c.ShouldBind(&form); err != nil {
		c.Error(types.NewAnalysisError(types.FailureInvalidInput, "Invalid height or weight", err))
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !emptyFilePart(c.Request) {
			c.Error(types.NewAnalysisError(types.FailureInvalidInput, "No image provided", nil))
			return
		}
		c.Error(types.NewAnalysisError(types.FailureInvalidInput, "Invalid image", err))
		return
	}
	if h.maxUpload > 0 && file.Size > h.maxUpload {
		c.Error(types.NewAnalysisError(types.FailureInvalidInput, "Invalid image",
			fmt.Errorf("image is %d bytes, limit is %d", file.Size, h.maxUpload)))
		return
	}

	f, err := file.Open()
	if err != nil {
		c.Error(types.NewAnalysisError(types.FailureInvalidInput, "Invalid image", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.Error(types.NewAnalysisError(types.FailureInvalidInput, "Invalid image", err))
		return
	}

	decoded, format, err := classifier.DecodeImage(data)
	if err != nil {
		c.Error(types.NewAnalysisError(types.FailureInvalidInput, "Invalid image", err))
		return
	}

	img := types.FoodImage{
		Filename: file.Filename,
		MIMEType: "image/" + format,
		Data:     data,
		Image:    decoded,
	}
	profile := types.HealthProfile{
		HeightCM: form.Height,
		WeightKG: form.Weight,
		Diseases: service.SplitDiseases(form.Diseases),
	}

	h.logger.Info("analyzing food image",
		zap.String("file", file.Filename),
		zap.String("format", format),
		zap.Int("bytes", len(data)),
		zap.Int("conditions", len(profile.Diseases)))

	resp, err := h.analysis.Analyze(c.Request.Context(), img, profile)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// emptyFilePart reports an image part sent with an empty filename. The
// multipart reader files such a part as a plain form value.
func emptyFilePart(r *http.Request) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.Value["image"]) > 0
}
