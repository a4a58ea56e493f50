package extract

import (
	"strings"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

// DefaultCategoryTable folds business categories into the UI taxonomy.
// Keys are matched case-insensitively; anything not in the table maps
// to the Notifications bucket.
var DefaultCategoryTable = map[string]string{
	domain.BusinessRevenueGenerating:    domain.CategoryImportantInfo,
	domain.BusinessOperational:          domain.CategoryImportantInfo,
	domain.BusinessRelationshipBuilding: domain.CategoryImportantInfo,
	domain.BusinessCompliance:           domain.CategoryImportantInfo,
}

// CategoryMapper is a total function from free-form business-category
// strings to members of the fixed UI taxonomy.
type CategoryMapper struct {
	table map[string]string
}

// NewCategoryMapper builds a mapper from the given table. A nil table
// selects DefaultCategoryTable.
func NewCategoryMapper(table map[string]string) *CategoryMapper {
	if table == nil {
		table = DefaultCategoryTable
	}
	normalized := make(map[string]string, len(table))
	for k, v := range table {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &CategoryMapper{table: normalized}
}

// Map returns the UI category for a business category. Unrecognized,
// empty, or missing input lands in Notifications.
func (m *CategoryMapper) Map(business string) string {
	if ui, ok := m.table[strings.ToLower(strings.TrimSpace(business))]; ok {
		return ui
	}
	return domain.CategoryNotifications
}
