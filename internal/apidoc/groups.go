package apidoc

import (
	"context"
	"strings"

	"github.com/ArCaneSec/apidock/internal/models"

	"gorm.io/gorm"
)

// ListGroups returns the group tree of a project, first level groups with
// their second level groups, ordered by id.
func (s *Service) ListGroups(ctx context.Context, projectID uint) ([]models.GroupFirst, error) {
	var groups []models.GroupFirst
	err := s.read(ctx, "list groups", func(db *gorm.DB) error {
		if _, err := resolveProject(db, projectID); err != nil {
			return err
		}
		return db.Where("project_id = ?", projectID).
			Preload("SecondGroups", byID).
			Order("id").
			Find(&groups).Error
	})
	return groups, err
}

func (s *Service) CreateGroup(ctx context.Context, actor uint, in *GroupInput) (uint, error) {
	if err := checkGroupName(in); err != nil {
		return 0, err
	}

	var id uint
	err := s.atomic(ctx, "create group", func(tx *gorm.DB) error {
		if _, err := resolveProject(tx, uint(in.ProjectID)); err != nil {
			return err
		}
		g := models.GroupFirst{ProjectID: uint(in.ProjectID), Name: in.Name}
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		id = g.ID
		return recordDynamic(tx, g.ProjectID, DynamicCreate, ObjectGroup, actor, "created group "+g.Name)
	})
	return id, err
}

func (s *Service) RenameGroup(ctx context.Context, actor uint, in *GroupInput) error {
	if err := checkGroupName(in); err != nil {
		return err
	}
	if in.ID == 0 {
		return invalidf("id is required")
	}

	return s.atomic(ctx, "rename group", func(tx *gorm.DB) error {
		if _, err := resolveProject(tx, uint(in.ProjectID)); err != nil {
			return err
		}
		g, err := resolveFirstGroup(tx, uint(in.ProjectID), uint(in.ID))
		if err != nil {
			return err
		}
		old := g.Name
		if err := tx.Model(g).Update("name", in.Name).Error; err != nil {
			return err
		}
		return recordDynamic(tx, g.ProjectID, DynamicUpdate, ObjectGroup, actor, "renamed group "+old+" to "+in.Name)
	})
}

// DeleteGroup removes a first level group and its second level groups. APIs
// filed under it keep their (now dangling) group references.
func (s *Service) DeleteGroup(ctx context.Context, actor uint, in *GroupInput) error {
	if err := checkShape(in); err != nil {
		return err
	}
	if in.ID == 0 {
		return invalidf("id is required")
	}

	return s.atomic(ctx, "delete group", func(tx *gorm.DB) error {
		if _, err := resolveProject(tx, uint(in.ProjectID)); err != nil {
			return err
		}
		g, err := resolveFirstGroup(tx, uint(in.ProjectID), uint(in.ID))
		if err != nil {
			return err
		}
		if err := deleteGroup(tx, g); err != nil {
			return err
		}
		return recordDynamic(tx, g.ProjectID, DynamicDelete, ObjectGroup, actor, "deleted group "+g.Name)
	})
}

func deleteGroup(tx *gorm.DB, g *models.GroupFirst) error {
	return tx.Select("SecondGroups").Delete(g).Error
}

func (s *Service) CreateSecondGroup(ctx context.Context, actor uint, in *GroupInput) (uint, error) {
	if err := checkGroupName(in); err != nil {
		return 0, err
	}
	if in.FirstGroupID == 0 {
		return 0, invalidf("first_group_id is required")
	}

	var id uint
	err := s.atomic(ctx, "create second group", func(tx *gorm.DB) error {
		if _, err := resolveProject(tx, uint(in.ProjectID)); err != nil {
			return err
		}
		first, err := resolveFirstGroup(tx, uint(in.ProjectID), uint(in.FirstGroupID))
		if err != nil {
			return err
		}
		g := models.GroupSecond{GroupFirstID: first.ID, Name: in.Name}
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		id = g.ID
		return recordDynamic(tx, first.ProjectID, DynamicCreate, ObjectGroup, actor, "created group "+first.Name+"/"+g.Name)
	})
	return id, err
}

func (s *Service) RenameSecondGroup(ctx context.Context, actor uint, in *GroupInput) error {
	if err := checkGroupName(in); err != nil {
		return err
	}
	if in.FirstGroupID == 0 || in.ID == 0 {
		return invalidf("first_group_id and id are required")
	}

	return s.atomic(ctx, "rename second group", func(tx *gorm.DB) error {
		first, g, err := resolveGroupPair(tx, in)
		if err != nil {
			return err
		}
		old := g.Name
		if err := tx.Model(g).Update("name", in.Name).Error; err != nil {
			return err
		}
		desc := "renamed group " + first.Name + "/" + old + " to " + in.Name
		return recordDynamic(tx, first.ProjectID, DynamicUpdate, ObjectGroup, actor, desc)
	})
}

func (s *Service) DeleteSecondGroup(ctx context.Context, actor uint, in *GroupInput) error {
	if err := checkShape(in); err != nil {
		return err
	}
	if in.FirstGroupID == 0 || in.ID == 0 {
		return invalidf("first_group_id and id are required")
	}

	return s.atomic(ctx, "delete second group", func(tx *gorm.DB) error {
		first, g, err := resolveGroupPair(tx, in)
		if err != nil {
			return err
		}
		if err := tx.Delete(g).Error; err != nil {
			return err
		}
		return recordDynamic(tx, first.ProjectID, DynamicDelete, ObjectGroup, actor, "deleted group "+first.Name+"/"+g.Name)
	})
}

// EnsureGroup returns the first level group of a project called name,
// creating it when missing.
func (s *Service) EnsureGroup(ctx context.Context, actor, projectID uint, name string) (uint, error) {
	in := &GroupInput{ProjectID: ID(projectID), Name: name}
	if err := checkGroupName(in); err != nil {
		return 0, err
	}

	var id uint
	err := s.atomic(ctx, "ensure group", func(tx *gorm.DB) error {
		if _, err := resolveProject(tx, projectID); err != nil {
			return err
		}
		var g models.GroupFirst
		res := tx.Where("project_id = ? AND name = ?", projectID, name).Order("id").Limit(1).Find(&g)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			id = g.ID
			return nil
		}
		g = models.GroupFirst{ProjectID: projectID, Name: name}
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		id = g.ID
		return recordDynamic(tx, projectID, DynamicCreate, ObjectGroup, actor, "created group "+name)
	})
	return id, err
}

func resolveGroupPair(tx *gorm.DB, in *GroupInput) (*models.GroupFirst, *models.GroupSecond, error) {
	if _, err := resolveProject(tx, uint(in.ProjectID)); err != nil {
		return nil, nil, err
	}
	first, err := resolveFirstGroup(tx, uint(in.ProjectID), uint(in.FirstGroupID))
	if err != nil {
		return nil, nil, err
	}
	g, err := resolveSecondGroup(tx, first.ID, uint(in.ID))
	if err != nil {
		return nil, nil, err
	}
	return first, g, nil
}

func checkGroupName(in *GroupInput) error {
	if err := checkShape(in); err != nil {
		return err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalidf("name is required")
	}
	return nil
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
