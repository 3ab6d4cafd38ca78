package omo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

const DefaultFetchTimeout = 10 * time.Second

// Source supplies the default agent and category assignments.
type Source interface {
	Assignments(ctx context.Context) (models.OmoAssignments, error)
}

// RegistrySource derives assignments from the model catalog.
type RegistrySource struct {
	Registry *models.Registry
}

func (s RegistrySource) Assignments(context.Context) (models.OmoAssignments, error) {
	registry := s.Registry
	if registry == nil {
		registry = models.Default()
	}
	return registry.OmoAssignments(), nil
}

// RemoteSource fetches an oh-my-opencode shaped document over HTTP.
type RemoteSource struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

func (s RemoteSource) Assignments(ctx context.Context) (models.OmoAssignments, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return models.OmoAssignments{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.OmoAssignments{}, fmt.Errorf("fetch defaults: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.OmoAssignments{}, fmt.Errorf("fetch defaults: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.OmoAssignments{}, fmt.Errorf("read defaults: %w", err)
	}
	return parseAssignments(body)
}

func parseAssignments(body []byte) (models.OmoAssignments, error) {
	if !gjson.ValidBytes(body) {
		return models.OmoAssignments{}, errors.New("defaults are not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return models.OmoAssignments{}, errors.New("defaults are not a JSON object")
	}

	return models.OmoAssignments{
		Agents:     modelTable(doc.Get("agents")),
		Categories: modelTable(doc.Get("categories")),
	}, nil
}

// modelTable reads {name: {model: "..."}}. Entries without a string
// model are ignored.
func modelTable(section gjson.Result) map[string]string {
	out := make(map[string]string)
	if !section.IsObject() {
		return out
	}
	section.ForEach(func(key, value gjson.Result) bool {
		if m := value.Get("model"); m.Type == gjson.String && m.Str != "" {
			out[key.String()] = m.Str
		}
		return true
	})
	return out
}
