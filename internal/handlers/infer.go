package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fodsense/fod-gateway/internal/aiclient"
	"github.com/fodsense/fod-gateway/internal/models"
)

// defaultFilename is used when the multipart upload omits a filename.
const defaultFilename = "upload.jpg"

// Detector forwards one image to the external inference service.
type Detector interface {
	Detect(ctx context.Context, image []byte, filename string, conf *float64, imgsz *int) ([]byte, *models.DetectResult, error)
}

// ResultSaver persists the detections of one inference result.
type ResultSaver interface {
	SaveResult(ctx context.Context, result *models.DetectResult, params models.SaveParams) error
}

// RegisterInferRoutes registers the inference proxy endpoints.
//
// POST /infer and POST /proxy/detect behave identically: both forward the
// uploaded image to the AI detect endpoint, relay the JSON result verbatim,
// and persist detections when save=true.
func RegisterInferRoutes(r gin.IRoutes, ai Detector, rec ResultSaver, log zerolog.Logger) {
	h := inferHandler(ai, rec, log)
	r.POST("/infer", h)
	r.POST("/proxy/detect", h)
}

func inferHandler(ai Detector, rec ResultSaver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params models.SaveParams
		if err := c.ShouldBindQuery(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
			return
		}

		image, filename, err := extractFile(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no file field"})
			return
		}

		raw, result, err := ai.Detect(c.Request.Context(), image, filename, params.Conf, params.ImgSz)
		if err != nil {
			var statusErr *aiclient.StatusError
			if errors.As(err, &statusErr) {
				code := statusErr.StatusCode
				if http.StatusText(code) == "" {
					code = http.StatusInternalServerError
				}
				log.Error().Int("ai_status", statusErr.StatusCode).Msg("ai detect returned error")
				c.JSON(code, gin.H{"error": "ai error: " + statusErr.Body})
				return
			}
			log.Error().Err(err).Msg("ai detect failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "inference failed"})
			return
		}

		// SaveResult is a no-op unless params.Save is set.
		if err := rec.SaveResult(c.Request.Context(), result, params); err != nil {
			log.Error().Err(err).Msg("failed to save detections")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save detections"})
			return
		}

		c.Data(http.StatusOK, "application/json", raw)
	}
}

// extractFile reads the "file" multipart field, supplying the default
// filename when the upload omits one.
func extractFile(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}

	filename := fh.Filename
	if filename == "" {
		filename = defaultFilename
	}
	return data, filename, nil
}
