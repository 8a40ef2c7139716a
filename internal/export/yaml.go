package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/models"

	"gopkg.in/yaml.v3"
)

type yamlDoc struct {
	Project  string        `yaml:"project"`
	Exported time.Time     `yaml:"exported"`
	Sections []yamlSection `yaml:"sections"`
}

type yamlSection struct {
	Title string    `yaml:"title"`
	Level int       `yaml:"level"`
	APIs  []yamlAPI `yaml:"apis,omitempty"`
}

type yamlAPI struct {
	Name        string            `yaml:"name"`
	Method      string            `yaml:"method"`
	Protocol    string            `yaml:"protocol"`
	Address     string            `yaml:"address"`
	Encoding    string            `yaml:"encoding"`
	Enabled     bool              `yaml:"enabled"`
	Description string            `yaml:"description,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Parameters  []yamlField       `yaml:"parameters,omitempty"`
	Body        any               `yaml:"body,omitempty"`
	Response    []yamlField       `yaml:"response,omitempty"`
}

type yamlField struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type,omitempty"`
	Required    bool   `yaml:"required"`
	Example     string `yaml:"example,omitempty"`
	Restriction string `yaml:"restriction,omitempty"`
	Description string `yaml:"description,omitempty"`
}

func renderYAML(c *apidoc.Catalogue, now time.Time) ([]byte, error) {
	doc := yamlDoc{Project: c.Label, Exported: now.UTC()}
	for _, s := range c.Sections() {
		ys := yamlSection{Title: s.Title, Level: s.Level}
		for i := range s.APIs {
			a, err := toYAML(&s.APIs[i])
			if err != nil {
				return nil, err
			}
			ys.APIs = append(ys.APIs, a)
		}
		doc.Sections = append(doc.Sections, ys)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml export: %w", err)
	}
	return out, nil
}

func toYAML(api *models.ApiDefinition) (yamlAPI, error) {
	a := yamlAPI{
		Name:        api.Name,
		Method:      api.RequestType,
		Protocol:    api.HTTPType,
		Address:     api.APIAddress,
		Encoding:    api.RequestParameterType,
		Enabled:     api.Status,
		Description: api.Description,
	}

	if len(api.Headers) > 0 {
		a.Headers = make(map[string]string, len(api.Headers))
		for _, h := range api.Headers {
			a.Headers[h.Name] = h.Value
		}
	}
	for _, p := range api.Parameters {
		a.Parameters = append(a.Parameters, yamlField{
			Name: p.Name, Type: p.Type, Required: p.Required,
			Example: p.Value, Restriction: p.Restrict, Description: p.Description,
		})
	}
	if api.ParameterRaw != nil && len(api.ParameterRaw.Data) > 0 {
		if err := json.Unmarshal(api.ParameterRaw.Data, &a.Body); err != nil {
			return yamlAPI{}, fmt.Errorf("decode raw body of %s: %w", api.Name, err)
		}
	}
	for _, f := range api.Responses {
		a.Response = append(a.Response, yamlField{
			Name: f.Name, Type: f.Type, Required: f.Required,
			Example: f.Value, Description: f.Description,
		})
	}
	return a, nil
}
