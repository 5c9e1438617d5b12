// Package achievement tracks gamified achievement progress.
//
// A Catalog is an immutable, validated list of achievement definitions.
// Reconcile folds live counters into a user's stored progress; records
// only ever move forward, and an unlocked record is never touched again.
package achievement

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// ErrInvalidCatalog wraps every catalog validation failure
var ErrInvalidCatalog = errors.New("invalid achievement catalog")

// Catalog is a validated, read-only set of achievement definitions.
// Definition order is preserved and drives output order.
type Catalog struct {
	definitions []models.AchievementDefinition
	index       map[string]int
}

// NewCatalog validates defs and returns a catalog holding a private copy
func NewCatalog(defs []models.AchievementDefinition) (*Catalog, error) {
	c := &Catalog{
		definitions: make([]models.AchievementDefinition, 0, len(defs)),
		index:       make(map[string]int, len(defs)),
	}

	var problems []string
	for i, def := range defs {
		def.ID = strings.TrimSpace(def.ID)
		if def.ID == "" {
			problems = append(problems, fmt.Sprintf("entry %d: id is required", i))
			continue
		}
		if _, dup := c.index[def.ID]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate id", def.ID))
			continue
		}
		if !def.Category.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown category %q", def.ID, def.Category))
		}
		if !(def.Requirement > 0) || math.IsInf(def.Requirement, 0) || def.Requirement != math.Trunc(def.Requirement) {
			problems = append(problems, fmt.Sprintf("%s: requirement must be a positive integer", def.ID))
		}
		if def.Points < 0 {
			problems = append(problems, fmt.Sprintf("%s: points must not be negative", def.ID))
		}

		c.index[def.ID] = len(c.definitions)
		c.definitions = append(c.definitions, def)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return c, nil
}

// Definitions returns a copy of the definitions in catalog order
func (c *Catalog) Definitions() []models.AchievementDefinition {
	out := make([]models.AchievementDefinition, len(c.definitions))
	copy(out, c.definitions)
	return out
}

// Lookup finds a definition by id
func (c *Catalog) Lookup(id string) (models.AchievementDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.AchievementDefinition{}, false
	}
	return c.definitions[i], true
}

func (c *Catalog) Len() int {
	return len(c.definitions)
}
