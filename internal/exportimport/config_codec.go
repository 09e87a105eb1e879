package exportimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// decodeConfig parses raw config bytes (in whatever format the file
// extension implies) into a generic settings tree, reusing viper rather
// than adding a YAML dependency of our own.
func decodeConfig(raw []byte, ext string) (map[string]interface{}, error) {
	v := viper.New()
	v.SetConfigType(configType(ext))
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return v.AllSettings(), nil
}

func configType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yml", "yaml":
		return "yaml"
	case "json":
		return "json"
	case "toml":
		return "toml"
	default:
		return "yaml"
	}
}
