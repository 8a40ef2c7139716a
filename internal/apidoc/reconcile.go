package apidoc

import (
	"encoding/json"
	"fmt"

	"github.com/ArCaneSec/apidock/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Row is one submitted child record. Rows that carry an identifier claim an
// existing stored row; rows without one are new.
type Row interface {
	key() (uint, bool)
	label() string
}

// Plan is the disjoint set of changes that brings a stored child set in line
// with a submission. It is applied in field order: deletes, updates, inserts.
type Plan[R Row] struct {
	Delete []uint
	Update []R
	Insert []R
}

func (p Plan[R]) Empty() bool {
	return len(p.Delete) == 0 && len(p.Update) == 0 && len(p.Insert) == 0
}

// Diff compares stored row identifiers against a submission.
//
// Every identifier named in the submission is kept, even on rows with an
// empty name; those rows are otherwise ignored. A stored row no submitted row
// names is deleted. A named row whose identifier matches a stored row is an
// update, any other named row is an insert.
func Diff[R Row](stored []uint, submitted []R) Plan[R] {
	existing := make(map[uint]bool, len(stored))
	for _, id := range stored {
		existing[id] = true
	}

	keep := make(map[uint]bool, len(submitted))
	for _, r := range submitted {
		if id, ok := r.key(); ok {
			keep[id] = true
		}
	}

	var plan Plan[R]
	for _, id := range stored {
		if !keep[id] {
			plan.Delete = append(plan.Delete, id)
		}
	}

	claimed := make(map[uint]bool, len(submitted))
	for _, r := range submitted {
		if r.label() == "" {
			continue
		}
		if id, ok := r.key(); ok && existing[id] && !claimed[id] {
			claimed[id] = true
			plan.Update = append(plan.Update, r)
			continue
		}
		plan.Insert = append(plan.Insert, r)
	}
	return plan
}

// childRow binds a submitted row type to the table it reconciles against.
type childRow[M any] interface {
	Row
	record(apiID uint) *M
	columns() map[string]any
}

// reconcile synchronises the rows of table M owned by apiID with the
// submission. It must run inside the caller's transaction.
func reconcile[M any, R childRow[M]](tx *gorm.DB, kind string, apiID uint, rows []R) error {
	for i, r := range rows {
		if r.label() == "" {
			continue
		}
		if err := validate.Struct(r); err != nil {
			return fmt.Errorf("%s row %d: %w: %v", kind, i, ErrOperationFailed, err)
		}
	}

	var stored []uint
	if err := tx.Model(new(M)).Where("api_id = ?", apiID).Order("id").Pluck("id", &stored).Error; err != nil {
		return failed("load "+kind, err)
	}

	plan := Diff(stored, rows)

	if len(plan.Delete) > 0 {
		if err := tx.Where("api_id = ? AND id IN ?", apiID, plan.Delete).Delete(new(M)).Error; err != nil {
			return failed("delete "+kind, err)
		}
	}
	for _, r := range plan.Update {
		id, _ := r.key()
		if err := tx.Model(new(M)).Where("id = ? AND api_id = ?", id, apiID).Updates(r.columns()).Error; err != nil {
			return failed("update "+kind, err)
		}
	}
	for _, r := range plan.Insert {
		if err := tx.Create(r.record(apiID)).Error; err != nil {
			return failed("insert "+kind, err)
		}
	}
	return nil
}

// replaceRaw swaps the raw payload of an API wholesale. An empty payload
// just clears it.
func replaceRaw(tx *gorm.DB, apiID uint, raw json.RawMessage) error {
	if err := tx.Where("api_id = ?", apiID).Delete(&models.ApiParameterRaw{}).Error; err != nil {
		return failed("clear raw parameter", err)
	}
	if isEmptyJSON(raw) {
		return nil
	}
	row := models.ApiParameterRaw{ApiID: apiID, Data: datatypes.JSON(raw)}
	if err := tx.Create(&row).Error; err != nil {
		return failed("insert raw parameter", err)
	}
	return nil
}

func (r HeaderRow) key() (uint, bool) { return optional(r.ID) }
func (r HeaderRow) label() string     { return r.Name }

func (r HeaderRow) record(apiID uint) *models.ApiHeader {
	return &models.ApiHeader{ApiID: apiID, Name: r.Name, Value: r.Value}
}

func (r HeaderRow) columns() map[string]any {
	return map[string]any{"name": r.Name, "value": r.Value}
}

func (r ParameterRow) key() (uint, bool) { return optional(r.ID) }
func (r ParameterRow) label() string     { return r.Name }

func (r ParameterRow) record(apiID uint) *models.ApiParameter {
	return &models.ApiParameter{
		ApiID:       apiID,
		Name:        r.Name,
		Value:       r.Value,
		Required:    r.Required,
		Restrict:    r.Restrict,
		Type:        typeOrDefault(r.Type),
		Description: r.Description,
	}
}

func (r ParameterRow) columns() map[string]any {
	return map[string]any{
		"name":        r.Name,
		"value":       r.Value,
		"required":    r.Required,
		"restrict":    r.Restrict,
		"type":        typeOrDefault(r.Type),
		"description": r.Description,
	}
}

func (r ResponseRow) key() (uint, bool) { return optional(r.ID) }
func (r ResponseRow) label() string     { return r.Name }

func (r ResponseRow) record(apiID uint) *models.ApiResponseField {
	return &models.ApiResponseField{
		ApiID:       apiID,
		Name:        r.Name,
		Value:       r.Value,
		Required:    r.Required,
		Type:        typeOrDefault(r.Type),
		Description: r.Description,
	}
}

func (r ResponseRow) columns() map[string]any {
	return map[string]any{
		"name":        r.Name,
		"value":       r.Value,
		"required":    r.Required,
		"type":        typeOrDefault(r.Type),
		"description": r.Description,
	}
}

func typeOrDefault(t string) string {
	if t == "" {
		return "String"
	}
	return t
}
