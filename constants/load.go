package constants

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// LoadKeywordTables reads a YAML keyword file and merges it over the
// built-in defaults: any table the file sets replaces the default table
// wholesale, any table it omits keeps the default. This lets deployments
// override just the vendor list without re-stating every category.
func LoadKeywordTables(path string) (KeywordTables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeywordTables{}, fmt.Errorf("read keywords file: %w", err)
	}

	var override KeywordTables
	if err := yaml.UnmarshalStrict(raw, &override); err != nil {
		return KeywordTables{}, fmt.Errorf("parse keywords file %s: %w", path, err)
	}

	tables := Defaults()
	if override.PersonalItems != nil {
		tables.PersonalItems = override.PersonalItems
	}
	if override.SuspiciousVendors != nil {
		tables.SuspiciousVendors = override.SuspiciousVendors
	}
	if override.Categories != nil {
		tables.Categories = override.Categories
	}
	return tables, nil
}
