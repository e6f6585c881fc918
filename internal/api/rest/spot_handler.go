package rest

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	app "cropscout/internal/application"
	"cropscout/internal/domain/entity"
)

type SpotHandler struct {
	spots *app.SpotService
}

func NewSpotHandler(spots *app.SpotService) *SpotHandler {
	return &SpotHandler{spots: spots}
}

type createSpotResponse struct {
	Spot     *entity.Spot           `json:"spot"`
	Analysis *entity.AnalysisResult `json:"analysis"`
}

// Create multipart: image, latitude, longitude, notes, device, model, timestamp (RFC 3339)
func (h *SpotHandler) Create(c echo.Context) error {
	lat, latErr := formFloat(c, "latitude")
	lng, lngErr := formFloat(c, "longitude")
	if latErr != nil || lngErr != nil {
		return entity.NewError(entity.CodeInvalidCoordinates, "latitude and longitude are required numbers", errors.Join(latErr, lngErr))
	}

	var ts time.Time
	if v := c.FormValue("timestamp"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest("timestamp must be RFC 3339", err)
		}
		ts = parsed.UTC()
	}

	data, name, err := formImage(c)
	if err != nil {
		return err
	}

	spot, analysis, err := h.spots.CreateSpot(c.Request().Context(), app.CreateSpotInput{
		FieldID:   c.Param("id"),
		Latitude:  lat,
		Longitude: lng,
		Image:     data,
		ImageName: name,
		Notes:     c.FormValue("notes"),
		Device:    c.FormValue("device"),
		ModelName: c.FormValue("model"),
		Timestamp: ts,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createSpotResponse{Spot: spot, Analysis: analysis})
}

func (h *SpotHandler) Get(c echo.Context) error {
	spot, err := h.spots.GetSpot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, spot)
}

func (h *SpotHandler) Image(c echo.Context) error {
	_, data, err := h.spots.SpotImage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, http.DetectContentType(data), data)
}

func (h *SpotHandler) Delete(c echo.Context) error {
	if err := h.spots.DeleteSpot(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "spot deleted"})
}

// Analyze классификация без сохранения: image, model, crop_type
func (h *SpotHandler) Analyze(c echo.Context) error {
	data, _, err := formImage(c)
	if err != nil {
		return err
	}
	crop := strings.TrimSpace(c.FormValue("crop_type"))
	if crop == "" {
		crop = entity.DefaultCropType
	}
	res, err := h.spots.AnalyzeImage(c.Request().Context(), data, c.FormValue("model"), crop)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func formFloat(c echo.Context, key string) (float64, error) {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return 0, errors.New(key + " is missing")
	}
	return strconv.ParseFloat(v, 64)
}

// formImage читает часть image; без файла no_image_provided
func formImage(c echo.Context) ([]byte, string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", entity.NewError(entity.CodeNoImageProvided, "no image provided", err)
		}
		return nil, "", badRequest("invalid multipart body", err)
	}
	if fh.Filename == "" || fh.Size == 0 {
		return nil, "", entity.NewError(entity.CodeNoImageProvided, "no image selected", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", badRequest("failed to read image", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", badRequest("failed to read image", err)
	}
	return data, fh.Filename, nil
}
