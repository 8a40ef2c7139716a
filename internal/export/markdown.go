package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/models"

	"github.com/valyala/fasttemplate"
)

const (
	docTemplate = `# {{label}}

_Exported {{date}}_

{{sections}}`

	apiTemplate = `{{heading}} {{name}}

{{description}}- **Address:** ` + "`{{method}} {{address}}`" + ` ({{protocol}})
- **Parameter encoding:** {{encoding}}
- **Status:** {{status}}

{{headers}}{{params}}{{responses}}`
)

var (
	docTmpl = fasttemplate.New(docTemplate, "{{", "}}")
	apiTmpl = fasttemplate.New(apiTemplate, "{{", "}}")
)

func markdown(c *apidoc.Catalogue, now time.Time) string {
	var sections strings.Builder
	for _, s := range c.Sections() {
		sections.WriteString(strings.Repeat("#", s.Level+1))
		sections.WriteString(" ")
		sections.WriteString(s.Title)
		sections.WriteString("\n\n")
		for i := range s.APIs {
			sections.WriteString(apiMarkdown(&s.APIs[i], s.Level+2))
		}
	}

	return docTmpl.ExecuteString(map[string]interface{}{
		"label":    c.Label,
		"date":     now.UTC().Format(time.RFC3339),
		"sections": sections.String(),
	})
}

func apiMarkdown(api *models.ApiDefinition, level int) string {
	status := "enabled"
	if !api.Status {
		status = "disabled"
	}
	desc := ""
	if api.Description != "" {
		desc = api.Description + "\n\n"
	}

	return apiTmpl.ExecuteString(map[string]interface{}{
		"heading":     strings.Repeat("#", level),
		"name":        api.Name,
		"description": desc,
		"method":      api.RequestType,
		"protocol":    api.HTTPType,
		"address":     api.APIAddress,
		"encoding":    api.RequestParameterType,
		"status":      status,
		"headers":     headerTable(api.Headers),
		"params":      requestTable(api),
		"responses":   responseTable(api.Responses),
	})
}

func headerTable(headers []models.ApiHeader) string {
	if len(headers) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Headers**\n\n| Name | Value |\n|---|---|\n")
	for _, h := range headers {
		row(&b, h.Name, h.Value)
	}
	b.WriteString("\n")
	return b.String()
}

func requestTable(api *models.ApiDefinition) string {
	if api.ParameterRaw != nil && len(api.ParameterRaw.Data) > 0 {
		return "**Request body**\n\n```json\n" + string(api.ParameterRaw.Data) + "\n```\n\n"
	}
	if len(api.Parameters) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Parameters**\n\n| Name | Type | Required | Example | Restriction | Description |\n|---|---|---|---|---|---|\n")
	for _, p := range api.Parameters {
		row(&b, p.Name, p.Type, strconv.FormatBool(p.Required), p.Value, p.Restrict, p.Description)
	}
	b.WriteString("\n")
	return b.String()
}

func responseTable(fields []models.ApiResponseField) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Response**\n\n| Name | Type | Required | Example | Description |\n|---|---|---|---|---|\n")
	for _, f := range fields {
		row(&b, f.Name, f.Type, strconv.FormatBool(f.Required), f.Value, f.Description)
	}
	b.WriteString("\n")
	return b.String()
}

func row(b *strings.Builder, cells ...string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(cellEscaper.Replace(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")
