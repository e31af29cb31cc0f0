package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/krishak/internal/advisor"
	"github.com/example/krishak/internal/auth"
	"github.com/example/krishak/internal/classifier"
	"github.com/example/krishak/internal/diagnosis"
	"github.com/example/krishak/internal/geo"
	"github.com/example/krishak/internal/logging"
	"github.com/example/krishak/internal/mandi"
	"github.com/example/krishak/internal/usecase"
	"github.com/example/krishak/internal/weather"
)

// MaxUploadSize caps a single uploaded photo.
const MaxUploadSize = 10 << 20

// multipart framing allowance on top of the photo itself.
const multipartOverhead = 1 << 20

// MaxChatBodySize fits a base64-encoded photo of MaxUploadSize plus the question.
const MaxChatBodySize = MaxUploadSize/3*4 + multipartOverhead

// Diagnoser runs leaf diagnoses.
type Diagnoser interface {
	Diagnose(ctx context.Context, imageBytes []byte) (*usecase.Diagnosis, error)
	ClassifyScores(ctx context.Context, scores []float64) (*usecase.Diagnosis, error)
	GetResult(ctx context.Context, requestID string) (*usecase.Diagnosis, error)
	ModelStatus() classifier.Status
	Stats() usecase.Stats
}

// Advisor answers questions and reads soil cards.
type Advisor interface {
	Chat(ctx context.Context, req advisor.ChatRequest) (string, error)
	AnalyzeSoilCard(ctx context.Context, card advisor.Image, forecast *weather.Summary) (*advisor.SoilReport, error)
}

// Forecaster fetches weather summaries.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.Summary, error)
}

// Geocoder resolves coordinates to a place.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) geo.Place
}

// PriceSource looks up mandi prices.
type PriceSource interface {
	LatestPrice(ctx context.Context, market, commodity string) (*mandi.Record, error)
}

// Services bundles what the routes call. Nil fields make their routes answer 503.
type Services struct {
	Diagnosis Diagnoser
	Advisor   Advisor
	Weather   Forecaster
	Geo       Geocoder
	Mandi     PriceSource
	Logger    *zap.Logger
}

type scoresRequest struct {
	Scores []float64 `json:"scores" binding:"required"`
}

type chatRequest struct {
	Question    string   `json:"question" binding:"required"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	ImageBase64 string   `json:"image_base64"`
	MIMEType    string   `json:"mime_type"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
// A nil authMiddleware leaves every route open.
func RegisterRoutes(router *gin.Engine, svc Services, authMiddleware gin.HandlerFunc) {
	if svc.Logger == nil {
		svc.Logger = zap.NewNop()
	}
	logger := svc.Logger.Named("handlers")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/")
	if authMiddleware != nil {
		protected.Use(authMiddleware)
	}

	protected.GET("/model/status", func(c *gin.Context) {
		if svc.Diagnosis == nil {
			serviceUnavailable(c, "diagnosis is not configured")
			return
		}
		st := svc.Diagnosis.ModelStatus()
		status := "unavailable"
		if st.Ready {
			status = "ready"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"backend": st.Backend,
			"labels":  st.Labels,
			"reason":  st.Reason,
		})
	})

	protected.POST("/diagnose", func(c *gin.Context) {
		if svc.Diagnosis == nil {
			serviceUnavailable(c, "diagnosis is not configured")
			return
		}
		data, _, ok := readImageUpload(c)
		if !ok {
			return
		}

		if farmerID, ok := auth.GetFarmerID(c.Request.Context()); ok {
			logger.Debug("diagnosis upload", zap.String("farmer_id", farmerID), zap.Int("bytes", len(data)))
		}
		result, err := svc.Diagnosis.Diagnose(c.Request.Context(), data)
		if err != nil {
			status := diagnosisErrorStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Error("diagnosis request failed", logging.ErrorFields(err)...)
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	protected.POST("/diagnose/scores", func(c *gin.Context) {
		if svc.Diagnosis == nil {
			serviceUnavailable(c, "diagnosis is not configured")
			return
		}
		var req scoresRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scores array is required"})
			return
		}

		result, err := svc.Diagnosis.ClassifyScores(c.Request.Context(), req.Scores)
		if err != nil {
			status := diagnosisErrorStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Error("diagnosis request failed", logging.ErrorFields(err)...)
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	protected.GET("/result/:id", func(c *gin.Context) {
		if svc.Diagnosis == nil {
			serviceUnavailable(c, "diagnosis is not configured")
			return
		}
		requestID := c.Param("id")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		result, err := svc.Diagnosis.GetResult(c.Request.Context(), requestID)
		if err != nil {
			if errors.Is(err, usecase.ErrResultNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	protected.GET("/stats", func(c *gin.Context) {
		if svc.Diagnosis == nil {
			serviceUnavailable(c, "diagnosis is not configured")
			return
		}
		c.JSON(http.StatusOK, svc.Diagnosis.Stats())
	})

	protected.POST("/chat", func(c *gin.Context) {
		if svc.Advisor == nil {
			serviceUnavailable(c, "advisor is not configured")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxChatBodySize)
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "chat request exceeds size limit"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
			return
		}

		chat := advisor.ChatRequest{Question: req.Question}
		if req.ImageBase64 != "" {
			data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is not valid base64"})
				return
			}
			mimeType := req.MIMEType
			if mimeType == "" {
				mimeType = "image/jpeg"
			}
			chat.Image = &advisor.Image{Data: data, MIMEType: mimeType}
		}
		if req.Lat != nil && req.Lon != nil {
			chat.Weather, chat.Place = fetchContext(c.Request.Context(), svc, logger, *req.Lat, *req.Lon)
		}

		answer, err := svc.Advisor.Chat(c.Request.Context(), chat)
		if err != nil {
			logger.Warn("advisor request failed", zap.String("route", c.FullPath()), zap.Error(err))
			c.JSON(advisorErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"answer": answer})
	})

	protected.POST("/soil-card", func(c *gin.Context) {
		if svc.Advisor == nil {
			serviceUnavailable(c, "advisor is not configured")
			return
		}
		data, mimeType, ok := readImageUpload(c)
		if !ok {
			return
		}

		var forecast *weather.Summary
		if lat, lon, err := parseCoordinates(c.PostForm("lat"), c.PostForm("lon")); err == nil {
			forecast, _ = fetchContext(c.Request.Context(), svc, logger, lat, lon)
		}

		report, err := svc.Advisor.AnalyzeSoilCard(c.Request.Context(), advisor.Image{Data: data, MIMEType: mimeType}, forecast)
		if err != nil {
			logger.Warn("advisor request failed", zap.String("route", c.FullPath()), zap.Error(err))
			c.JSON(advisorErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	})

	protected.GET("/weather", func(c *gin.Context) {
		if svc.Weather == nil {
			serviceUnavailable(c, "weather is not configured")
			return
		}
		lat, lon, err := parseCoordinates(c.Query("lat"), c.Query("lon"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		summary, err := svc.Weather.Forecast(c.Request.Context(), lat, lon)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, weather.ErrMissingAPIKey) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	protected.GET("/place", func(c *gin.Context) {
		if svc.Geo == nil {
			serviceUnavailable(c, "geocoding is not configured")
			return
		}
		lat, lon, err := parseCoordinates(c.Query("lat"), c.Query("lon"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, svc.Geo.Reverse(c.Request.Context(), lat, lon))
	})

	protected.GET("/mandi", func(c *gin.Context) {
		if svc.Mandi == nil {
			serviceUnavailable(c, "mandi prices are not configured")
			return
		}
		market := c.DefaultQuery("market", mandi.DefaultMarket)
		commodity := c.DefaultQuery("commodity", mandi.DefaultCommodity)

		rec, err := svc.Mandi.LatestPrice(c.Request.Context(), market, commodity)
		if err != nil {
			switch {
			case errors.Is(err, mandi.ErrNoRecord):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, mandi.ErrMissingAPIKey):
				serviceUnavailable(c, err.Error())
			default:
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, rec)
	})
}

// readImageUpload writes the error response itself and reports ok=false on failure.
func readImageUpload(c *gin.Context) ([]byte, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+multipartOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return nil, "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return nil, "", false
	}
	if file.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
		return nil, "", false
	}

	mimeType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only image uploads are supported"})
		return nil, "", false
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
		return nil, "", false
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return nil, "", false
	}
	return data, mimeType, true
}

// fetchContext gathers weather and place in parallel; either may come back nil.
func fetchContext(ctx context.Context, svc Services, logger *zap.Logger, lat, lon float64) (*weather.Summary, *geo.Place) {
	var (
		forecast *weather.Summary
		place    *geo.Place
	)
	g, gctx := errgroup.WithContext(ctx)
	if svc.Weather != nil {
		g.Go(func() error {
			summary, err := svc.Weather.Forecast(gctx, lat, lon)
			if err != nil {
				logger.Warn("weather context unavailable", zap.Error(err))
				return nil
			}
			forecast = summary
			return nil
		})
	}
	if svc.Geo != nil {
		g.Go(func() error {
			p := svc.Geo.Reverse(gctx, lat, lon)
			place = &p
			return nil
		})
	}
	_ = g.Wait()
	return forecast, place
}

func parseCoordinates(latRaw, lonRaw string) (float64, float64, error) {
	if latRaw == "" || lonRaw == "" {
		return 0, 0, errors.New("lat and lon are required")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, errors.New("lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, errors.New("lon must be a number between -180 and 180")
	}
	return lat, lon, nil
}

func diagnosisErrorStatus(err error) int {
	switch {
	case errors.Is(err, classifier.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, classifier.ErrInvalidImage),
		errors.Is(err, diagnosis.ErrInsufficientClasses),
		errors.Is(err, diagnosis.ErrLengthMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func advisorErrorStatus(err error) int {
	var rate *advisor.ErrRateLimit
	if errors.As(err, &rate) {
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

func serviceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": message})
}
