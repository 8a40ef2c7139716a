package apidoc

import (
	"context"

	"github.com/ArCaneSec/apidock/internal/models"

	"gorm.io/gorm"
)

// Catalogue is everything an exported document shows about a project.
type Catalogue struct {
	Label  string
	Groups []models.GroupFirst
	APIs   []models.ApiDefinition
}

// Section is one group of a catalogue with the APIs filed directly under it.
type Section struct {
	Title string
	Level int
	APIs  []models.ApiDefinition
}

// Catalogue assembles the current group tree and the fully loaded APIs of a
// project.
func (s *Service) Catalogue(ctx context.Context, projectID uint) (*Catalogue, error) {
	var c Catalogue
	err := s.read(ctx, "assemble catalogue", func(db *gorm.DB) error {
		p, err := resolveProject(db, projectID)
		if err != nil {
			return err
		}
		c.Label = p.String()

		err = db.Where("project_id = ?", projectID).
			Preload("SecondGroups", byID).
			Order("id").
			Find(&c.Groups).Error
		if err != nil {
			return err
		}

		return db.Where("project_id = ?", projectID).
			Preload("Headers", byID).
			Preload("Parameters", byID).
			Preload("ParameterRaw").
			Preload("Responses", byID).
			Order("id").
			Find(&c.APIs).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Sections flattens the group tree in document order. APIs whose group
// references match no current group end up in a trailing "Ungrouped" section.
func (c *Catalogue) Sections() []Section {
	type slot struct{ first, second uint }
	byGroup := make(map[slot][]models.ApiDefinition)
	known := make(map[slot]bool)

	for _, g := range c.Groups {
		known[slot{g.ID, 0}] = true
		for _, sg := range g.SecondGroups {
			known[slot{g.ID, sg.ID}] = true
		}
	}

	var orphans []models.ApiDefinition
	for _, api := range c.APIs {
		var k slot
		if api.GroupFirstID != nil {
			k.first = *api.GroupFirstID
		}
		if api.GroupSecondID != nil {
			k.second = *api.GroupSecondID
		}
		if !known[k] && known[slot{k.first, 0}] {
			k.second = 0
		}
		if !known[k] {
			orphans = append(orphans, api)
			continue
		}
		byGroup[k] = append(byGroup[k], api)
	}

	var out []Section
	for _, g := range c.Groups {
		out = append(out, Section{Title: g.Name, Level: 1, APIs: byGroup[slot{g.ID, 0}]})
		for _, sg := range g.SecondGroups {
			out = append(out, Section{Title: sg.Name, Level: 2, APIs: byGroup[slot{g.ID, sg.ID}]})
		}
	}
	if len(orphans) > 0 {
		out = append(out, Section{Title: "Ungrouped", Level: 1, APIs: orphans})
	}
	return out
}
