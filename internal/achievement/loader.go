package achievement

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
})

// catalogFile is the on-disk YAML layout
type catalogFile struct {
	Achievements []models.AchievementDefinition `yaml:"achievements"`
}

// ParseCatalog decodes and validates a YAML catalog document
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(file.Achievements)
}

// LoadCatalogFile reads and validates the catalog at path
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog.
// It panics if the embedded document is invalid, which tests rule out.
func DefaultCatalog() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}
