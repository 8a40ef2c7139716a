package apidoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArCaneSec/apidock/internal/models"
	"github.com/ArCaneSec/apidock/internal/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateAPI stores a new definition with its headers, request parameters and
// response fields and returns its id.
func (s *Service) CreateAPI(ctx context.Context, actor uint, in *CreateInput) (uint, error) {
	if err := checkShape(in); err != nil {
		return 0, err
	}
	pl, err := in.payload()
	if err != nil {
		return 0, err
	}

	var id uint
	err = s.atomic(ctx, "create api", func(tx *gorm.DB) error {
		projectID := uint(in.ProjectID)
		if _, err := resolveProject(tx, projectID); err != nil {
			return err
		}
		if err := nameTaken(tx, projectID, in.Name, 0); err != nil {
			return err
		}
		first, second, err := resolveGroups(tx, projectID, in.FirstGroupID, in.SecondGroupID)
		if err != nil {
			return err
		}

		api := models.ApiDefinition{
			ProjectID:            projectID,
			GroupFirstID:         first,
			GroupSecondID:        second,
			Name:                 in.Name,
			HTTPType:             in.HTTPType,
			RequestType:          in.RequestType,
			APIAddress:           in.APIAddress,
			RequestParameterType: in.RequestParameterType,
			Status:               *in.Status,
			MockStatus:           in.MockStatus,
			MockCode:             in.MockCode,
			Description:          in.Description,
			UserUpdate:           actor,
		}
		if err := tx.Create(&api).Error; err != nil {
			return err
		}
		id = api.ID

		if err := reconcileChildren(tx, &in.Definition, api.ID, pl); err != nil {
			return err
		}
		if err := recordOperation(tx, api.ID, actor, "created API "+api.Name); err != nil {
			return err
		}
		return recordDynamic(tx, projectID, DynamicCreate, ObjectAPI, actor, "created API "+api.Name)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateAPI replaces the scalar fields and group placement of a definition
// and reconciles its child rows against the submission.
func (s *Service) UpdateAPI(ctx context.Context, actor uint, in *UpdateInput) error {
	if err := checkShape(in); err != nil {
		return err
	}
	if _, ok := optional(in.FirstGroupID); !ok {
		return invalidf("first_group_id is required")
	}
	if _, ok := optional(in.SecondGroupID); !ok {
		return invalidf("second_group_id is required")
	}
	pl, err := in.payload()
	if err != nil {
		return err
	}

	return s.atomic(ctx, "update api", func(tx *gorm.DB) error {
		projectID := uint(in.ProjectID)
		if _, err := resolveProject(tx, projectID); err != nil {
			return err
		}
		api, err := resolveAPI(tx, projectID, uint(in.APIID))
		if err != nil {
			return err
		}
		if err := nameTaken(tx, projectID, in.Name, api.ID); err != nil {
			return err
		}
		first, second, err := resolveGroups(tx, projectID, in.FirstGroupID, in.SecondGroupID)
		if err != nil {
			return err
		}

		err = tx.Model(api).Updates(map[string]any{
			"group_first_id":         first,
			"group_second_id":        second,
			"name":                   in.Name,
			"http_type":              in.HTTPType,
			"request_type":           in.RequestType,
			"api_address":            in.APIAddress,
			"request_parameter_type": in.RequestParameterType,
			"status":                 *in.Status,
			"mock_status":            in.MockStatus,
			"mock_code":              in.MockCode,
			"description":            in.Description,
			"user_update":            actor,
		}).Error
		if err != nil {
			return err
		}

		if err := reconcileChildren(tx, &in.Definition, api.ID, pl); err != nil {
			return err
		}
		if err := recordOperation(tx, api.ID, actor, "updated API "+in.Name); err != nil {
			return err
		}
		return recordDynamic(tx, projectID, DynamicUpdate, ObjectAPI, actor, "updated API "+in.Name)
	})
}

// reconcileChildren brings every child set of an API in line with d. The
// encoding mode decides which request parameter table is live; the other
// one is emptied.
func reconcileChildren(tx *gorm.DB, d *Definition, apiID uint, pl payload) error {
	if err := reconcile[models.ApiHeader](tx, "header", apiID, d.Headers); err != nil {
		return err
	}

	if d.RequestParameterType == EncodingFormData {
		if err := replaceRaw(tx, apiID, nil); err != nil {
			return err
		}
		if err := reconcile[models.ApiParameter](tx, "parameter", apiID, pl.params); err != nil {
			return err
		}
	} else {
		if err := reconcile[models.ApiParameter, ParameterRow](tx, "parameter", apiID, nil); err != nil {
			return err
		}
		if err := replaceRaw(tx, apiID, pl.raw); err != nil {
			return err
		}
	}

	return reconcile[models.ApiResponseField](tx, "response", apiID, d.Responses)
}

type DeleteInput struct {
	ProjectID ID     `json:"project_id" validate:"required"`
	APIIDs    IDList `json:"api_ids" validate:"required,min=1"`
}

// DeleteAPIs removes the listed APIs of a project together with their child
// rows and histories. Ids that match nothing in the project are skipped.
func (s *Service) DeleteAPIs(ctx context.Context, actor uint, in *DeleteInput) error {
	if err := checkShape(in); err != nil {
		return err
	}

	return s.atomic(ctx, "delete apis", func(tx *gorm.DB) error {
		projectID := uint(in.ProjectID)
		if _, err := resolveProject(tx, projectID); err != nil {
			return err
		}
		for _, id := range in.APIIDs {
			var api models.ApiDefinition
			res := tx.Where("id = ? AND project_id = ?", id, projectID).Limit(1).Find(&api)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := deleteAPI(tx, &api); err != nil {
				return err
			}
			if err := recordDynamic(tx, projectID, DynamicDelete, ObjectAPI, actor, "deleted API "+api.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func deleteAPI(tx *gorm.DB, api *models.ApiDefinition) error {
	return tx.Select(clause.Associations).Delete(api).Error
}

// ReassignGroup files a batch of APIs under another group. Omitting the
// second level group clears the second level placement, so an API never
// points at a second level group outside its first level group. Ids that
// match nothing in the project are skipped.
func (s *Service) ReassignGroup(ctx context.Context, actor uint, in *ReassignInput) error {
	if err := checkShape(in); err != nil {
		return err
	}

	return s.atomic(ctx, "reassign group", func(tx *gorm.DB) error {
		projectID := uint(in.ProjectID)
		if _, err := resolveProject(tx, projectID); err != nil {
			return err
		}
		first, err := resolveFirstGroup(tx, projectID, uint(in.FirstGroupID))
		if err != nil {
			return err
		}

		var second *uint
		if id, ok := optional(in.SecondGroupID); ok {
			g, err := resolveSecondGroup(tx, first.ID, id)
			if err != nil {
				return err
			}
			second = &g.ID
		}

		res := tx.Model(&models.ApiDefinition{}).
			Where("project_id = ? AND id IN ?", projectID, []uint(in.APIIDs)).
			Updates(map[string]any{
				"group_first_id":  first.ID,
				"group_second_id": second,
				"user_update":     actor,
			})
		if res.Error != nil {
			return res.Error
		}

		desc := fmt.Sprintf("moved %d API(s) to group %s", res.RowsAffected, first.Name)
		return recordDynamic(tx, projectID, DynamicUpdate, ObjectAPI, actor, desc)
	})
}

// GetAPI loads one definition with all of its child rows ordered by id.
func (s *Service) GetAPI(ctx context.Context, projectID, apiID uint) (*models.ApiDefinition, error) {
	var api models.ApiDefinition
	err := s.read(ctx, "get api", func(db *gorm.DB) error {
		if _, err := resolveProject(db, projectID); err != nil {
			return err
		}
		err := db.Where("id = ? AND project_id = ?", apiID, projectID).
			Preload("Headers", byID).
			Preload("Parameters", byID).
			Preload("ParameterRaw").
			Preload("Responses", byID).
			Take(&api).Error
		return notFound("get api", err, ErrAPINotFound)
	})
	if err != nil {
		return nil, err
	}
	return &api, nil
}

type APIQuery struct {
	ProjectID    uint
	FirstGroupID uint
	Name         string
	Page         int
	Size         int
}

// ListAPIs pages through the APIs of a project ordered by id, optionally
// narrowed to a first level group and a name fragment.
func (s *Service) ListAPIs(ctx context.Context, q APIQuery) (pagination.Page[models.ApiDefinition], error) {
	var page pagination.Page[models.ApiDefinition]
	err := s.read(ctx, "list apis", func(db *gorm.DB) error {
		if _, err := resolveProject(db, q.ProjectID); err != nil {
			return err
		}

		query := db.Model(&models.ApiDefinition{}).Where("project_id = ?", q.ProjectID)
		if q.FirstGroupID != 0 {
			query = query.Where("group_first_id = ?", q.FirstGroupID)
		}
		if q.Name != "" {
			query = query.Where(`name LIKE ? ESCAPE '\'`, "%"+escapeLike(q.Name)+"%")
		}

		var err error
		page, err = pagination.Paginate[models.ApiDefinition](query.Order("id"), q.Size, q.Page)
		return err
	})
	return page, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
