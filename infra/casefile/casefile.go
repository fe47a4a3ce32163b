// Package casefile reads planning cases from YAML or JSON files.
package casefile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/unitcommit/core/model"
)

// Load parses the case at path. The format follows the extension. A case
// without a name is named after its file. The result is not validated; pass
// it through model.Build.
func Load(path string) (model.Case, error) {
	parser, err := parserFor(path)
	if err != nil {
		return model.Case{}, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return model.Case{}, fmt.Errorf("casefile: read %s: %w", path, err)
	}
	var c model.Case
	if err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return model.Case{}, fmt.Errorf("casefile: decode %s: %w", path, err)
	}
	if c.Name == "" {
		base := filepath.Base(path)
		c.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return c, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("casefile: unsupported format %q", filepath.Ext(path))
	}
}
