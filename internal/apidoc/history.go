package apidoc

import (
	"context"

	"github.com/ArCaneSec/apidock/internal/models"
	"github.com/ArCaneSec/apidock/internal/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DynamicCreate = "create"
	DynamicUpdate = "update"
	DynamicDelete = "delete"

	ObjectAPI   = "api"
	ObjectGroup = "api group"
)

// RecentRequests is how many request history entries a listing surfaces.
const RecentRequests = 10

// recordDynamic appends to the project activity feed. It shares the caller's
// transaction, so a failed write here undoes the mutation it describes.
func recordDynamic(tx *gorm.DB, projectID uint, kind, object string, actor uint, desc string) error {
	d := models.ProjectDynamic{
		ProjectID:       projectID,
		Type:            kind,
		OperationObject: object,
		UserID:          actor,
		Description:     desc,
	}
	if err := tx.Create(&d).Error; err != nil {
		return failed("record project dynamic", err)
	}
	return nil
}

func recordOperation(tx *gorm.DB, apiID, actor uint, desc string) error {
	h := models.OperationHistory{ApiID: apiID, UserID: actor, Description: desc}
	if err := tx.Create(&h).Error; err != nil {
		return failed("record operation history", err)
	}
	return nil
}

// AddRequestHistory logs one executed test request against an API.
func (s *Service) AddRequestHistory(ctx context.Context, in *RequestRecord) (uint, error) {
	if err := checkShape(in); err != nil {
		return 0, err
	}

	var id uint
	err := s.atomic(ctx, "add request history", func(tx *gorm.DB) error {
		if _, err := resolveProject(tx, uint(in.ProjectID)); err != nil {
			return err
		}
		if _, err := resolveAPI(tx, uint(in.ProjectID), uint(in.APIID)); err != nil {
			return err
		}
		h := models.RequestHistory{
			ApiID:          uint(in.APIID),
			RequestType:    in.RequestType,
			RequestAddress: in.URL,
			HTTPCode:       in.HTTPStatus,
		}
		if err := tx.Create(&h).Error; err != nil {
			return err
		}
		id = h.ID
		return nil
	})
	return id, err
}

// RequestHistory returns the most recent test requests of an API, newest
// first.
func (s *Service) RequestHistory(ctx context.Context, projectID, apiID uint) ([]models.RequestHistory, error) {
	var out []models.RequestHistory
	err := s.read(ctx, "list request history", func(db *gorm.DB) error {
		if _, err := resolveProject(db, projectID); err != nil {
			return err
		}
		if _, err := resolveAPI(db, projectID, apiID); err != nil {
			return err
		}
		return db.Where("api_id = ?", apiID).
			Order("request_time DESC").Order("id DESC").
			Limit(RecentRequests).
			Find(&out).Error
	})
	return out, err
}

type HistoryRef struct {
	ProjectID ID `json:"project_id" validate:"required"`
	APIID     ID `json:"api_id" validate:"required"`
	ID        ID `json:"id" validate:"required"`
}

// DeleteRequestHistory removes one request history entry of an API.
func (s *Service) DeleteRequestHistory(ctx context.Context, actor uint, in *HistoryRef) error {
	if err := checkShape(in); err != nil {
		return err
	}

	return s.atomic(ctx, "delete request history", func(tx *gorm.DB) error {
		if _, err := resolveProject(tx, uint(in.ProjectID)); err != nil {
			return err
		}
		api, err := resolveAPI(tx, uint(in.ProjectID), uint(in.APIID))
		if err != nil {
			return err
		}

		res := tx.Where("id = ? AND api_id = ?", uint(in.ID), api.ID).Delete(&models.RequestHistory{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrHistoryNotFound
		}
		return recordOperation(tx, api.ID, actor, "deleted request history "+formatID(uint(in.ID)))
	})
}

type OperationQuery struct {
	ProjectID uint
	APIID     uint
	Page      int
	Size      int
}

// OperationHistory pages through the change log of an API, newest first.
func (s *Service) OperationHistory(ctx context.Context, q OperationQuery) (pagination.Page[models.OperationHistory], error) {
	var page pagination.Page[models.OperationHistory]
	err := s.read(ctx, "list operation history", func(db *gorm.DB) error {
		if _, err := resolveProject(db, q.ProjectID); err != nil {
			return err
		}
		if _, err := resolveAPI(db, q.ProjectID, q.APIID); err != nil {
			return err
		}

		var err error
		query := db.Model(&models.OperationHistory{}).Where("api_id = ?", q.APIID).Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true}).
			Order("id DESC")
		page, err = pagination.Paginate[models.OperationHistory](query, q.Size, q.Page)
		return err
	})
	return page, err
}
