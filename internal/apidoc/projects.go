package apidoc

import (
	"context"

	"github.com/ArCaneSec/apidock/internal/models"

	"gorm.io/gorm"
)

func (s *Service) CreateProject(ctx context.Context, in *ProjectInput) (uint, error) {
	if err := checkShape(in); err != nil {
		return 0, err
	}

	p := models.Project{
		Name:        in.Name,
		Version:     in.Version,
		Type:        in.Type,
		Description: in.Description,
	}
	err := s.atomic(ctx, "create project", func(tx *gorm.DB) error {
		return tx.Create(&p).Error
	})
	return p.ID, err
}

func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := s.read(ctx, "list projects", func(db *gorm.DB) error {
		return db.Order("id").Find(&out).Error
	})
	return out, err
}

// DeleteProject removes a project with everything filed under it.
func (s *Service) DeleteProject(ctx context.Context, id uint) error {
	return s.atomic(ctx, "delete project", func(tx *gorm.DB) error {
		p, err := resolveProject(tx, id)
		if err != nil {
			return err
		}

		var apis []models.ApiDefinition
		if err := tx.Where("project_id = ?", id).Find(&apis).Error; err != nil {
			return err
		}
		for i := range apis {
			if err := deleteAPI(tx, &apis[i]); err != nil {
				return err
			}
		}

		var groups []models.GroupFirst
		if err := tx.Where("project_id = ?", id).Find(&groups).Error; err != nil {
			return err
		}
		for i := range groups {
			if err := deleteGroup(tx, &groups[i]); err != nil {
				return err
			}
		}

		return tx.Select("Dynamics").Delete(p).Error
	})
}
