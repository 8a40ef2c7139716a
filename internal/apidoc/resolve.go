package apidoc

import (
	"errors"

	"github.com/ArCaneSec/apidock/internal/models"

	"gorm.io/gorm"
)

// The resolvers confirm that an untrusted identifier names an existing row
// inside the claimed parent scope. They never write.

func resolveProject(tx *gorm.DB, id uint) (*models.Project, error) {
	var p models.Project
	if err := tx.Take(&p, id).Error; err != nil {
		return nil, notFound("resolve project", err, ErrProjectNotFound)
	}
	return &p, nil
}

func resolveFirstGroup(tx *gorm.DB, projectID, id uint) (*models.GroupFirst, error) {
	var g models.GroupFirst
	if err := tx.Where("id = ? AND project_id = ?", id, projectID).Take(&g).Error; err != nil {
		return nil, notFound("resolve group", err, ErrGroupNotFound)
	}
	return &g, nil
}

func resolveSecondGroup(tx *gorm.DB, firstID, id uint) (*models.GroupSecond, error) {
	var g models.GroupSecond
	if err := tx.Where("id = ? AND group_first_id = ?", id, firstID).Take(&g).Error; err != nil {
		return nil, notFound("resolve second group", err, ErrGroupNotFound)
	}
	return &g, nil
}

func resolveAPI(tx *gorm.DB, projectID, id uint) (*models.ApiDefinition, error) {
	var a models.ApiDefinition
	if err := tx.Where("id = ? AND project_id = ?", id, projectID).Take(&a).Error; err != nil {
		return nil, notFound("resolve api", err, ErrAPINotFound)
	}
	return &a, nil
}

// resolveGroups checks the optional group pair of a definition: a second
// level group needs a first level group and must sit under it.
func resolveGroups(tx *gorm.DB, projectID uint, first, second *ID) (*uint, *uint, error) {
	firstID, hasFirst := optional(first)
	secondID, hasSecond := optional(second)

	if hasSecond && !hasFirst {
		return nil, nil, invalidf("second_group_id requires first_group_id")
	}
	if !hasFirst {
		return nil, nil, nil
	}
	if _, err := resolveFirstGroup(tx, projectID, firstID); err != nil {
		return nil, nil, err
	}
	if !hasSecond {
		return &firstID, nil, nil
	}
	if _, err := resolveSecondGroup(tx, firstID, secondID); err != nil {
		return nil, nil, err
	}
	return &firstID, &secondID, nil
}

// nameTaken reports whether another API of the project already uses name.
func nameTaken(tx *gorm.DB, projectID uint, name string, except uint) error {
	var n int64
	q := tx.Model(&models.ApiDefinition{}).Where("project_id = ? AND name = ?", projectID, name)
	if except != 0 {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return failed("check api name", err)
	}
	if n > 0 {
		return ErrNameConflict
	}
	return nil
}

func notFound(op string, err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return failed(op, err)
}
