package apidoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	EncodingFormData = "form-data"
	EncodingRaw      = "raw"
	EncodingRestful  = "Restful"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkShape runs the struct validator and reports the first offending field
// as an invalid parameter.
func checkShape(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalidf("%s failed %q", fe.Field(), fe.Tag())
	}
	return invalidf("%v", err)
}

// Definition is the client supplied shape of an API definition, shared by
// create and update.
type Definition struct {
	ProjectID            ID              `json:"project_id" validate:"required"`
	FirstGroupID         *ID             `json:"first_group_id"`
	SecondGroupID        *ID             `json:"second_group_id"`
	Name                 string          `json:"name" validate:"required,max=50"`
	HTTPType             string          `json:"httpType" validate:"required,oneof=HTTP HTTPS"`
	RequestType          string          `json:"requestType" validate:"required,oneof=POST GET PUT DELETE"`
	APIAddress           string          `json:"apiAddress" validate:"required,max=1024"`
	RequestParameterType string          `json:"requestParameterType" validate:"required,oneof=form-data raw Restful"`
	Status               *bool           `json:"status" validate:"required"`
	MockStatus           bool            `json:"mockStatus"`
	MockCode             string          `json:"code"`
	Description          string          `json:"description" validate:"max=1024"`
	Headers              []HeaderRow     `json:"headDict"`
	RequestList          json.RawMessage `json:"requestList"`
	Responses            []ResponseRow   `json:"responseList"`
}

type CreateInput struct {
	Definition
}

type UpdateInput struct {
	APIID ID `json:"api_id" validate:"required"`
	Definition
}

// payload is the decoded request parameter section of a definition: rows
// for form-data, an opaque document otherwise.
type payload struct {
	params []ParameterRow
	raw    json.RawMessage
}

func (d *Definition) payload() (payload, error) {
	if d.RequestParameterType != EncodingFormData {
		if isEmptyJSON(d.RequestList) {
			return payload{}, nil
		}
		if !json.Valid(d.RequestList) {
			return payload{}, invalidf("requestList is not valid JSON")
		}
		return payload{raw: d.RequestList}, nil
	}

	if isEmptyJSON(d.RequestList) {
		return payload{}, nil
	}
	var rows []ParameterRow
	if err := json.Unmarshal(d.RequestList, &rows); err != nil {
		return payload{}, fmt.Errorf("%w: requestList must be a list of parameters", ErrInvalidParameter)
	}
	return payload{params: rows}, nil
}

// isEmptyJSON reports whether a submitted document carries nothing worth
// storing: absent, null, "", [] or {}.
func isEmptyJSON(b json.RawMessage) bool {
	t := bytes.TrimSpace(b)
	if len(t) == 0 {
		return true
	}
	switch string(t) {
	case "null", `""`:
		return true
	}
	if (t[0] == '[' && t[len(t)-1] == ']') || (t[0] == '{' && t[len(t)-1] == '}') {
		return len(bytes.TrimSpace(t[1:len(t)-1])) == 0
	}
	return false
}

type HeaderRow struct {
	ID    *ID    `json:"id,omitempty"`
	Name  string `json:"name" validate:"max=1024"`
	Value string `json:"value" validate:"max=1024"`
}

type ParameterRow struct {
	ID          *ID    `json:"id,omitempty"`
	Name        string `json:"name" validate:"max=1024"`
	Value       string `json:"value" validate:"max=1024"`
	Required    bool   `json:"required"`
	Restrict    string `json:"restrict" validate:"max=1024"`
	Type        string `json:"_type" validate:"omitempty,oneof=String Int Float Boolean Object Array File"`
	Description string `json:"description" validate:"max=1024"`
}

type ResponseRow struct {
	ID          *ID    `json:"id,omitempty"`
	Name        string `json:"name" validate:"max=1024"`
	Value       string `json:"value" validate:"max=1024"`
	Required    bool   `json:"required"`
	Type        string `json:"_type" validate:"omitempty,oneof=String Int Float Boolean Object Array"`
	Description string `json:"description" validate:"max=1024"`
}

// GroupInput names a group. FirstGroupID is only read for second-level groups.
type GroupInput struct {
	ProjectID    ID     `json:"project_id" validate:"required"`
	FirstGroupID ID     `json:"first_group_id"`
	ID           ID     `json:"id"`
	Name         string `json:"name" validate:"max=50"`
}

type ReassignInput struct {
	ProjectID     ID     `json:"project_id" validate:"required"`
	APIIDs        IDList `json:"api_ids" validate:"required,min=1"`
	FirstGroupID  ID     `json:"first_group_id" validate:"required"`
	SecondGroupID *ID    `json:"second_group_id"`
}

type RequestRecord struct {
	ProjectID   ID     `json:"project_id" validate:"required"`
	APIID       ID     `json:"api_id" validate:"required"`
	RequestType string `json:"requestType" validate:"required,oneof=POST GET PUT DELETE"`
	URL         string `json:"url" validate:"required,max=1024"`
	HTTPStatus  string `json:"httpStatus" validate:"required,oneof=200 302 400 404 500 502"`
}

type ProjectInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Version     string `json:"version" validate:"max=50"`
	Type        string `json:"type" validate:"max=50"`
	Description string `json:"description" validate:"max=1024"`
}
