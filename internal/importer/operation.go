package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ArCaneSec/apidock/internal/apidoc"

	"github.com/getkin/kin-openapi/openapi3"
)

const exampleDepth = 4

type operation struct {
	path   string
	method string
	item   *openapi3.PathItem
	op     *openapi3.Operation
}

func (o operation) name() string {
	name := strings.TrimSpace(o.op.Summary)
	if name == "" {
		name = o.op.OperationID
	}
	if name == "" {
		name = o.method + " " + o.path
	}
	return truncate(name, 50)
}

func (o operation) tag() string {
	if len(o.op.Tags) == 0 {
		return ""
	}
	return truncate(strings.TrimSpace(o.op.Tags[0]), 50)
}

func (o operation) input(projectID uint, protocol string) (*apidoc.CreateInput, error) {
	status := !o.op.Deprecated
	desc := o.op.Description
	if desc == "" && o.op.Summary != "" && o.op.Summary != o.name() {
		desc = o.op.Summary
	}

	in := &apidoc.CreateInput{Definition: apidoc.Definition{
		ProjectID:            apidoc.ID(projectID),
		Name:                 o.name(),
		HTTPType:             protocol,
		RequestType:          o.method,
		APIAddress:           truncate(o.path, 1024),
		RequestParameterType: apidoc.EncodingFormData,
		Status:               &status,
		Description:          truncate(desc, 1024),
	}}

	var params []apidoc.ParameterRow
	for _, p := range o.parameters() {
		switch p.In {
		case openapi3.ParameterInHeader:
			in.Headers = append(in.Headers, apidoc.HeaderRow{Name: p.Name, Value: exampleText(p.Example, p.Schema)})
		default:
			params = append(params, apidoc.ParameterRow{
				Name:        p.Name,
				Value:       exampleText(p.Example, p.Schema),
				Required:    p.Required,
				Type:        typeTag(p.Schema, true),
				Description: truncate(p.Description, 1024),
				Restrict:    restriction(p.Schema),
			})
		}
	}

	body, ok, err := o.jsonBody()
	if err != nil {
		return nil, err
	}
	if ok {
		in.RequestParameterType = apidoc.EncodingRaw
		in.RequestList = body
	} else {
		params = append(params, o.formFields()...)
		if len(params) > 0 {
			list, err := json.Marshal(params)
			if err != nil {
				return nil, fmt.Errorf("encode parameters of %s %s: %w", o.method, o.path, err)
			}
			in.RequestList = list
		}
	}

	in.Responses = o.responseFields()
	return in, nil
}

// parameters merges path level and operation level parameters. The
// operation wins when both declare the same name and location.
func (o operation) parameters() []*openapi3.Parameter {
	seen := make(map[string]int)
	var out []*openapi3.Parameter
	for _, list := range []openapi3.Parameters{o.item.Parameters, o.op.Parameters} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			key := p.In + ":" + p.Name
			if i, ok := seen[key]; ok {
				out[i] = p
				continue
			}
			seen[key] = len(out)
			out = append(out, p)
		}
	}
	return out
}

func (o operation) jsonBody() (json.RawMessage, bool, error) {
	mt := o.bodyMedia(isJSON)
	if mt == nil {
		return nil, false, nil
	}
	var example any
	switch {
	case mt.Example != nil:
		example = mt.Example
	case mt.Schema != nil:
		example = schemaExample(mt.Schema.Value, exampleDepth)
	}
	body, err := json.Marshal(example)
	if err != nil {
		return nil, true, fmt.Errorf("encode body example of %s %s: %w", o.method, o.path, err)
	}
	return body, true, nil
}

func (o operation) formFields() []apidoc.ParameterRow {
	mt := o.bodyMedia(func(ct string) bool {
		return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
	})
	if mt == nil || mt.Schema == nil {
		return nil
	}
	return fieldsOf(mt.Schema.Value, func(name string, s *openapi3.SchemaRef, required bool) apidoc.ParameterRow {
		return apidoc.ParameterRow{
			Name:        name,
			Value:       exampleText(nil, s),
			Required:    required,
			Type:        typeTag(s, true),
			Restrict:    restriction(s),
			Description: truncate(description(s), 1024),
		}
	})
}

func (o operation) responseFields() []apidoc.ResponseRow {
	if o.op.Responses == nil {
		return nil
	}
	var ref *openapi3.ResponseRef
	for _, candidate := range []*openapi3.ResponseRef{o.op.Responses.Status(200), o.op.Responses.Status(201), o.op.Responses.Default()} {
		if candidate != nil && candidate.Value != nil {
			ref = candidate
			break
		}
	}
	if ref == nil {
		return nil
	}
	var mt *openapi3.MediaType
	for ct, m := range ref.Value.Content {
		if isJSON(ct) {
			mt = m
			break
		}
	}
	if mt == nil || mt.Schema == nil {
		return nil
	}

	schema := mt.Schema.Value
	if schema != nil && schema.Type.Is(openapi3.TypeArray) && schema.Items != nil {
		schema = schema.Items.Value
	}
	return fieldsOf(schema, func(name string, s *openapi3.SchemaRef, required bool) apidoc.ResponseRow {
		return apidoc.ResponseRow{
			Name:        name,
			Value:       exampleText(nil, s),
			Required:    required,
			Type:        typeTag(s, false),
			Description: truncate(description(s), 1024),
		}
	})
}

func (o operation) bodyMedia(match func(string) bool) *openapi3.MediaType {
	if o.op.RequestBody == nil || o.op.RequestBody.Value == nil {
		return nil
	}
	for ct, mt := range o.op.RequestBody.Value.Content {
		if match(strings.ToLower(ct)) {
			return mt
		}
	}
	return nil
}

// fieldsOf maps the properties of an object schema in name order.
func fieldsOf[R any](s *openapi3.Schema, row func(string, *openapi3.SchemaRef, bool) R) []R {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	var out []R
	for _, name := range sortedKeys(s.Properties) {
		out = append(out, row(truncate(name, 1024), s.Properties[name], required[name]))
	}
	return out
}

func isJSON(ct string) bool {
	ct = strings.ToLower(ct)
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

// typeTag maps a schema to the field type vocabulary of a definition.
// Binary strings become File where files are allowed.
func typeTag(ref *openapi3.SchemaRef, files bool) string {
	if ref == nil || ref.Value == nil {
		return "String"
	}
	s := ref.Value
	switch {
	case s.Type.Is(openapi3.TypeString):
		if files && s.Format == "binary" {
			return "File"
		}
		return "String"
	case s.Type.Is(openapi3.TypeInteger):
		return "Int"
	case s.Type.Is(openapi3.TypeNumber):
		return "Float"
	case s.Type.Is(openapi3.TypeBoolean):
		return "Boolean"
	case s.Type.Is(openapi3.TypeArray):
		return "Array"
	case s.Type.Is(openapi3.TypeObject), len(s.Properties) > 0:
		return "Object"
	}
	return "String"
}

func restriction(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return ""
	}
	s := ref.Value
	var parts []string
	if len(s.Enum) > 0 {
		vals := make([]string, 0, len(s.Enum))
		for _, v := range s.Enum {
			vals = append(vals, fmt.Sprint(v))
		}
		parts = append(parts, "enum: "+strings.Join(vals, ", "))
	}
	if s.Pattern != "" {
		parts = append(parts, "pattern: "+s.Pattern)
	}
	if s.Min != nil {
		parts = append(parts, fmt.Sprintf("min: %v", *s.Min))
	}
	if s.Max != nil {
		parts = append(parts, fmt.Sprintf("max: %v", *s.Max))
	}
	if s.MaxLength != nil {
		parts = append(parts, fmt.Sprintf("maxLength: %d", *s.MaxLength))
	}
	return truncate(strings.Join(parts, "; "), 1024)
}

func description(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return ""
	}
	return ref.Value.Description
}

func exampleText(example any, ref *openapi3.SchemaRef) string {
	if example == nil && ref != nil && ref.Value != nil {
		example = ref.Value.Example
		if example == nil && len(ref.Value.Enum) > 0 {
			example = ref.Value.Enum[0]
		}
	}
	switch v := example.(type) {
	case nil:
		return ""
	case string:
		return truncate(v, 1024)
	case map[string]any, []any:
		b, _ := json.Marshal(v)
		return truncate(string(b), 1024)
	default:
		return truncate(fmt.Sprint(v), 1024)
	}
}

// schemaExample builds a sample value for s, preferring declared examples.
func schemaExample(s *openapi3.Schema, depth int) any {
	if s == nil || depth == 0 {
		return nil
	}
	if s.Example != nil {
		return s.Example
	}
	if len(s.Enum) > 0 {
		return s.Enum[0]
	}
	switch {
	case s.Type.Is(openapi3.TypeArray):
		if s.Items == nil {
			return []any{}
		}
		return []any{schemaExample(s.Items.Value, depth-1)}
	case s.Type.Is(openapi3.TypeString):
		return ""
	case s.Type.Is(openapi3.TypeInteger), s.Type.Is(openapi3.TypeNumber):
		return 0
	case s.Type.Is(openapi3.TypeBoolean):
		return false
	}
	obj := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		if p != nil {
			obj[name] = schemaExample(p.Value, depth-1)
		}
	}
	return obj
}

func sortedKeys(m openapi3.Schemas) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
