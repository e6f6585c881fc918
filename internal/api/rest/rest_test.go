package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"cropscout/internal/container"
	"cropscout/internal/domain/entity"
	"cropscout/internal/infrastructure/imagestore"
	"cropscout/internal/infrastructure/inference"
	"cropscout/internal/infrastructure/storage"
	"cropscout/internal/infrastructure/vision"
)

func newServer(t *testing.T, models ...string) *echo.Echo {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	images, err := imagestore.NewLocal(t.TempDir())
	require.NoError(t, err)

	var deployed []entity.ModelDescriptor
	for _, name := range models {
		d, ok := inference.Match(name)
		require.True(t, ok, name)
		deployed = append(deployed, d)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := container.New(container.Deps{
		Spots:  storage.NewSpotRepository(db),
		Users:  storage.NewMemoryUserRepository(),
		Images: images,
		Models: inference.NewStaticProviderWith(deployed...),
		Vision: vision.NewAnalyzer(vision.InputSize, vision.DefaultMaxPixels),
		Log:    log,
	})
	return New(log,
		NewFieldHandler(c.FieldService, c.SummaryService),
		NewSpotHandler(c.SpotService),
		NewSystemHandler(c.Analyzer, c.Cache, c.Repo),
	)
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code entity.ErrorCode) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[errorResponse](t, rec)
	require.Equal(t, code, body.Code)
	require.NotEmpty(t, body.Message)
}

// checkerboard резкий снимок средней яркости
func checkerboard(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func flat(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "leaf.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

const squareField = `{"name":"North block","crop_type":"coffee","polygon_coordinates":[[0,0],[0,1],[1,1],[1,0]]}`

func createField(t *testing.T, e *echo.Echo) entity.Field {
	t.Helper()
	rec := do(e, jsonRequest(http.MethodPost, "/api/fields", squareField))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	f := decode[entity.Field](t, rec)
	require.NotEmpty(t, f.ID)
	return f
}

func TestFields_CreateListGet(t *testing.T) {
	e := newServer(t, "CustomCNN1")
	f := createField(t, e)
	require.Equal(t, "coffee", f.CropType)
	require.Len(t, f.Polygon, 4)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Fields []entity.Field `json:"fields"`
	}](t, rec)
	require.Len(t, list.Fields, 1)
	require.Equal(t, f.ID, list.Fields[0].ID)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/fields/"+f.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		ID      string              `json:"id"`
		Metrics entity.FieldMetrics `json:"metrics"`
	}](t, rec)
	require.Equal(t, f.ID, detail.ID)
	require.Greater(t, detail.Metrics.AreaSqm, 0.0)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/fields/"+f.ID+"/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Greater(t, decode[entity.FieldMetrics](t, rec).PerimeterM, 0.0)
}

func TestFields_Errors(t *testing.T) {
	e := newServer(t, "CustomCNN1")

	rec := do(e, jsonRequest(http.MethodPost, "/api/fields", `{"name":"x","polygon_coordinates":[[0,0],[1,1]]}`))
	requireError(t, rec, http.StatusBadRequest, entity.CodeInvalidPolygon)

	rec = do(e, jsonRequest(http.MethodPost, "/api/fields", `{"polygon_coordinates":[[0,0],[0,1],[1,1]]}`))
	requireError(t, rec, http.StatusBadRequest, entity.CodeInvalidRequest)

	rec = do(e, jsonRequest(http.MethodPost, "/api/fields", `{not json`))
	requireError(t, rec, http.StatusBadRequest, entity.CodeInvalidRequest)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/fields/missing", nil))
	requireError(t, rec, http.StatusNotFound, entity.CodeFieldNotFound)

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/api/fields/missing", nil))
	requireError(t, rec, http.StatusNotFound, entity.CodeFieldNotFound)
}

func TestSpots_CreateReadDelete(t *testing.T) {
	e := newServer(t, "CustomCNN1")
	f := createField(t, e)
	img := checkerboard(t)

	rec := do(e, multipartRequest(t, "/api/fields/"+f.ID+"/spots", map[string]string{
		"latitude": "0.5", "longitude": "0.5", "notes": "row 4", "device": "pixel",
	}, img))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Spot     entity.Spot           `json:"spot"`
		Analysis entity.AnalysisResult `json:"analysis"`
	}](t, rec)
	require.NotEmpty(t, created.Spot.ID)
	require.Equal(t, f.ID, created.Spot.FieldID)
	require.Equal(t, "row 4", created.Spot.Notes)
	require.Equal(t, entity.StatusOK, created.Analysis.Status)
	require.Equal(t, "CustomCNN1", created.Analysis.ModelVersion)
	require.Equal(t, created.Spot.ID, created.Analysis.SpotID)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/spots/"+created.Spot.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[entity.Spot](t, rec)
	require.NotNil(t, got.Analysis)
	require.Equal(t, created.Analysis.HealthLabel, got.Analysis.HealthLabel)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/spots/"+created.Spot.ID+"/image", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	require.Equal(t, img, rec.Body.Bytes())

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/fields/"+f.ID+"/analysis-summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[entity.Summary](t, rec)
	require.Equal(t, 1, summary.TotalSpots)
	require.Equal(t, 1, summary.HealthDistribution[created.Analysis.HealthLabel])
	require.Len(t, summary.Heatmap, 1)
	require.Equal(t, created.Analysis.Confidence, summary.Heatmap[0].Severity)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/fields/"+f.ID+"/heatmap.geojson", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/geo+json", rec.Header().Get(echo.HeaderContentType))
	fc := decode[struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}](t, rec)
	require.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/api/spots/"+created.Spot.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/spots/"+created.Spot.ID, nil))
	requireError(t, rec, http.StatusNotFound, entity.CodeNotFound)
	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/spots/"+created.Spot.ID+"/image", nil))
	requireError(t, rec, http.StatusNotFound, entity.CodeNotFound)
}

func TestSpots_UnusableImageIsStored(t *testing.T) {
	e := newServer(t, "CustomCNN1")
	f := createField(t, e)

	rec := do(e, multipartRequest(t, "/api/fields/"+f.ID+"/spots", map[string]string{
		"latitude": "0.25", "longitude": "0.75",
	}, flat(t)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Analysis entity.AnalysisResult `json:"analysis"`
	}](t, rec)
	require.Equal(t, entity.StatusUnusableImage, created.Analysis.Status)
	require.Equal(t, entity.HealthUnknown, created.Analysis.HealthLabel)
	require.Equal(t, entity.ModelNone, created.Analysis.ModelVersion)
	require.True(t, created.Analysis.Quality.IsBlurry)
}

func TestSpots_Rejections(t *testing.T) {
	e := newServer(t, "CustomCNN1")
	f := createField(t, e)
	path := "/api/fields/" + f.ID + "/spots"
	img := checkerboard(t)

	tests := []struct {
		name   string
		path   string
		fields map[string]string
		image  []byte
		status int
		code   entity.ErrorCode
	}{
		{"missing latitude", path, map[string]string{"longitude": "0.5"}, img, http.StatusBadRequest, entity.CodeInvalidCoordinates},
		{"non-numeric", path, map[string]string{"latitude": "north", "longitude": "0.5"}, img, http.StatusBadRequest, entity.CodeInvalidCoordinates},
		{"out of range", path, map[string]string{"latitude": "91", "longitude": "0.5"}, img, http.StatusBadRequest, entity.CodeInvalidCoordinates},
		{"no image", path, map[string]string{"latitude": "0.5", "longitude": "0.5"}, nil, http.StatusBadRequest, entity.CodeNoImageProvided},
		{"empty image", path, map[string]string{"latitude": "0.5", "longitude": "0.5"}, []byte{}, http.StatusBadRequest, entity.CodeNoImageProvided},
		{"outside", path, map[string]string{"latitude": "5", "longitude": "5"}, img, http.StatusBadRequest, entity.CodeGeofenceViolation},
		{"bad timestamp", path, map[string]string{"latitude": "0.5", "longitude": "0.5", "timestamp": "yesterday"}, img, http.StatusBadRequest, entity.CodeInvalidRequest},
		{"unknown field", "/api/fields/missing/spots", map[string]string{"latitude": "0.5", "longitude": "0.5"}, img, http.StatusNotFound, entity.CodeFieldNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, multipartRequest(t, tt.path, tt.fields, tt.image))
			requireError(t, rec, tt.status, tt.code)
		})
	}

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/fields/"+f.ID+"/analysis-summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, decode[entity.Summary](t, rec).TotalSpots)
}

func TestSpots_NoModelsDeployed(t *testing.T) {
	e := newServer(t)
	f := createField(t, e)

	rec := do(e, multipartRequest(t, "/api/fields/"+f.ID+"/spots", map[string]string{
		"latitude": "0.5", "longitude": "0.5",
	}, checkerboard(t)))
	requireError(t, rec, http.StatusServiceUnavailable, entity.CodeNoModelsAvailable)
}

func TestAnalyze(t *testing.T) {
	e := newServer(t, "BinaryCNN_Light", "CustomCNN2")

	rec := do(e, multipartRequest(t, "/api/analyze", map[string]string{"crop_type": "maize"}, checkerboard(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[entity.AnalysisResult](t, rec)
	require.Equal(t, entity.StatusOK, res.Status)
	require.Equal(t, "CustomCNN2", res.ModelVersion)

	rec = do(e, multipartRequest(t, "/api/analyze", map[string]string{"model": "BinaryCNN_Light"}, checkerboard(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "BinaryCNN_Light", decode[entity.AnalysisResult](t, rec).ModelVersion)

	rec = do(e, multipartRequest(t, "/api/analyze", nil, nil))
	requireError(t, rec, http.StatusBadRequest, entity.CodeNoImageProvided)
}

func TestModelsAndHealth(t *testing.T) {
	e := newServer(t, "CustomCNN1")

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	models := decode[struct {
		Models []struct {
			Name   string `json:"name"`
			Loaded bool   `json:"loaded"`
		} `json:"models"`
		Total int `json:"total_models"`
	}](t, rec)
	require.Equal(t, 1, models.Total)
	require.Equal(t, "CustomCNN1", models.Models[0].Name)
	require.False(t, models.Models[0].Loaded)

	rec = do(e, multipartRequest(t, "/api/analyze", nil, checkerboard(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[struct {
		Status string   `json:"status"`
		Loaded []string `json:"loaded_models"`
	}](t, rec)
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, []string{"CustomCNN1"}, health.Loaded)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newServer(t, "CustomCNN1")
	rec := do(e, multipartRequest(t, "/api/analyze", nil, checkerboard(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cropscout_model_loads_total")
}

func TestUnknownRoute(t *testing.T) {
	e := newServer(t)
	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	requireError(t, rec, http.StatusNotFound, entity.CodeNotFound)
}

func TestToResponse(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   entity.ErrorCode
	}{
		{entity.NewError(entity.CodeGeofenceViolation, "outside", nil), http.StatusBadRequest, entity.CodeGeofenceViolation},
		{entity.NewError(entity.CodeFieldBusy, "busy", nil), http.StatusConflict, entity.CodeFieldBusy},
		{entity.NewError(entity.CodeAnalysisFailure, "inference failed", errors.New("boom")), http.StatusBadGateway, entity.CodeAnalysisFailure},
		{entity.NewError(entity.CodeAnalysisFailure, "inference failed", fmt.Errorf("slow: %w", context.DeadlineExceeded)), http.StatusGatewayTimeout, entity.CodeAnalysisFailure},
		{entity.NewError(entity.CodeNoModelsAvailable, "none", nil), http.StatusServiceUnavailable, entity.CodeNoModelsAvailable},
		{entity.NewError(entity.CodePersistenceError, "db", nil), http.StatusInternalServerError, entity.CodePersistenceError},
		{echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too large"), http.StatusRequestEntityTooLarge, entity.CodeInvalidRequest},
		{errors.New("unexpected"), http.StatusInternalServerError, entity.CodeInternal},
	}
	for _, tt := range tests {
		status, body := toResponse(tt.err)
		require.Equal(t, tt.status, status, tt.err.Error())
		require.Equal(t, tt.code, body.Code)
	}
}
