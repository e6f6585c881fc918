package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cropscout/internal/domain/entity"
)

// HTTPProvider клиент модельного сервера.
//
//	GET  {base}/models                -> {"models":[{"name","num_classes","class_names","path"}]}
//	POST {base}/models/{name}/load    -> 200 когда веса загружены
//	POST {base}/models/{name}/predict -> {"probabilities":{"<class>":p}}; тело image/jpeg
type HTTPProvider struct {
	base   string
	client *http.Client
}

// NewHTTPProvider создаёт клиент; таймаут запроса управляется контекстом вызывающего
func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPProvider{base: strings.TrimRight(baseURL, "/"), client: client}
}

type modelsResponse struct {
	Models []entity.ModelDescriptor `json:"models"`
}

type predictResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

// ListAvailable запрашивает развёрнутые модели
func (p *HTTPProvider) ListAvailable(ctx context.Context) ([]entity.ModelDescriptor, error) {
	var out modelsResponse
	if err := p.do(ctx, http.MethodGet, "/models", "", nil, &out); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return out.Models, nil
}

// Load просит сервер загрузить веса модели
func (p *HTTPProvider) Load(ctx context.Context, name string) (*entity.ModelHandle, error) {
	var d entity.ModelDescriptor
	if err := p.do(ctx, http.MethodPost, "/models/"+url.PathEscape(name)+"/load", "", nil, &d); err != nil {
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}
	if d.Name == "" {
		d.Name = name
	}
	return &entity.ModelHandle{Descriptor: d, Ref: p.base + "/models/" + url.PathEscape(name)}, nil
}

// Infer отправляет подготовленный снимок на предсказание
func (p *HTTPProvider) Infer(ctx context.Context, h *entity.ModelHandle, image []byte) (map[string]float64, error) {
	var out predictResponse
	path := "/models/" + url.PathEscape(h.Descriptor.Name) + "/predict"
	if err := p.do(ctx, http.MethodPost, path, "image/jpeg", image, &out); err != nil {
		return nil, fmt.Errorf("predict with %q: %w", h.Descriptor.Name, err)
	}
	if len(out.Probabilities) == 0 {
		return nil, fmt.Errorf("predict with %q: empty probabilities", h.Descriptor.Name)
	}
	return out.Probabilities, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.base+path, r)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
