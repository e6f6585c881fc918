package rest

import (
	"net/http"

	"github.com/labstack/echo/v4"

	app "cropscout/internal/application"
	"cropscout/internal/domain/entity"
	"cropscout/internal/geofence"
)

type FieldHandler struct {
	fields  *app.FieldService
	summary *app.SummaryService
}

func NewFieldHandler(fields *app.FieldService, summary *app.SummaryService) *FieldHandler {
	return &FieldHandler{fields: fields, summary: summary}
}

// fieldDetail поле с точками и геометрическими характеристиками
type fieldDetail struct {
	*entity.Field
	Metrics entity.FieldMetrics `json:"metrics"`
}

func (h *FieldHandler) Create(c echo.Context) error {
	var req app.CreateFieldInput
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body", err)
	}
	f, err := h.fields.CreateField(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *FieldHandler) List(c echo.Context) error {
	fields, err := h.fields.ListFields(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"fields": fields})
}

func (h *FieldHandler) Get(c echo.Context) error {
	f, err := h.fields.GetField(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fieldDetail{Field: f, Metrics: geofence.Metrics(f.Polygon)})
}

func (h *FieldHandler) Metrics(c echo.Context) error {
	m, err := h.fields.FieldMetrics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *FieldHandler) Delete(c echo.Context) error {
	if err := h.fields.DeleteField(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "field deleted"})
}

func (h *FieldHandler) Summary(c echo.Context) error {
	s, err := h.summary.Summarize(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Heatmap граница поля и точки с анализом как GeoJSON FeatureCollection
func (h *FieldHandler) Heatmap(c echo.Context) error {
	fc, err := h.summary.HeatmapGeoJSON(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/geo+json", body)
}
