package report

import (
	"encoding/json"

	"go.yaml.in/yaml/v3"

	"github.com/tfdigest/tfdigest/pkg/models"
)

// EncodeJSON returns the digest as indented JSON.
func EncodeJSON(d *models.Digest) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// EncodeYAML returns the digest as YAML.
func EncodeYAML(d *models.Digest) ([]byte, error) {
	return yaml.Marshal(d)
}
