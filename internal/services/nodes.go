package services

import (
	"github.com/localnerve/eventsdb/internal/tree"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockNode re-reads a tree node by id under an UPDATE lock
func lockNode(tx *gorm.DB, node interface{}, id uint) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(node, id).Error
}

// nextChildPath computes the path for a new last child of parentPath in the
// table of model
func nextChildPath(tx *gorm.DB, model interface{}, parentPath string) (string, error) {
	var last []string
	if err := tx.Model(model).
		Where("path LIKE ? AND depth = ?", tree.ChildPattern(parentPath), tree.Depth(parentPath)+1).
		Order("path DESC").
		Limit(1).
		Pluck("path", &last).Error; err != nil {
		return "", err
	}

	lastChild := ""
	if len(last) > 0 {
		lastChild = last[0]
	}
	return tree.NextChild(parentPath, lastChild)
}
