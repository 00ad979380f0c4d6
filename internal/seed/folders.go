package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed folders.yaml
var defaultFoldersYAML []byte

// FolderSpec is one node of a folder tree fixture.
type FolderSpec struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	AdminOnly   bool         `yaml:"admin_only"`
	Children    []FolderSpec `yaml:"children"`
}

// ParseFolderTree decodes a YAML folder tree and rejects unnamed or
// duplicate sibling folders.
func ParseFolderTree(data []byte) ([]FolderSpec, error) {
	var tree []FolderSpec
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse folder tree: %w", err)
	}
	if err := validateFolderLevel(tree, "/"); err != nil {
		return nil, err
	}
	return tree, nil
}

func validateFolderLevel(nodes []FolderSpec, where string) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			return fmt.Errorf("folder without a name under %s", where)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate folder %q under %s", name, where)
		}
		seen[key] = true
		if err := validateFolderLevel(n.Children, where+name+"/"); err != nil {
			return err
		}
	}
	return nil
}

// DefaultFolders returns the embedded default tree.
func DefaultFolders() []FolderSpec {
	tree, err := ParseFolderTree(defaultFoldersYAML)
	if err != nil {
		panic(err)
	}
	return tree
}

// Folders creates the tree under createdBy. Existing folders, matched by
// name under the same parent, are updated instead of duplicated.
// Children of an admin-only folder are always admin-only.
func Folders(db *gorm.DB, createdBy uint, tree []FolderSpec) (int, error) {
	created := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var walk func(nodes []FolderSpec, parentID *uint, inheritedAdmin bool) error
		walk = func(nodes []FolderSpec, parentID *uint, inheritedAdmin bool) error {
			for _, n := range nodes {
				adminOnly := n.AdminOnly || inheritedAdmin
				cat, isNew, err := upsertFolder(tx, createdBy, parentID, strings.TrimSpace(n.Name), n.Description, adminOnly)
				if err != nil {
					return err
				}
				if isNew {
					created++
				}
				id := cat.ID
				if err := walk(n.Children, &id, adminOnly); err != nil {
					return err
				}
			}
			return nil
		}
		return walk(tree, nil, false)
	})
	return created, err
}

func upsertFolder(tx *gorm.DB, createdBy uint, parentID *uint, name, description string, adminOnly bool) (*models.Category, bool, error) {
	var existing models.Category
	q := tx.Where("name = ?", name)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	err := q.First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cat := &models.Category{
			Name:        name,
			Description: description,
			CreatedBy:   createdBy,
			ParentID:    parentID,
			AdminOnly:   adminOnly,
		}
		if err := tx.Create(cat).Error; err != nil {
			return nil, false, fmt.Errorf("create folder %q: %w", name, err)
		}
		return cat, true, nil
	case err != nil:
		return nil, false, err
	}

	if existing.Description != description || existing.AdminOnly != adminOnly {
		if err := tx.Model(&existing).Updates(map[string]any{
			"description": description,
			"admin_only":  adminOnly,
		}).Error; err != nil {
			return nil, false, fmt.Errorf("update folder %q: %w", name, err)
		}
	}
	return &existing, false, nil
}
