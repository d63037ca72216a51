package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devops-csmake/debpack/internal/models"
	"go.yaml.in/yaml/v3"
)

// Manifest is a decoded package manifest
type Manifest struct {
	Spec    models.PackageSpec
	Stage   string
	Exclude []string
}

// relationKeys are the manifest keys holding package relationships
var relationKeys = []string{
	"depends", "pre-depends", "recommends", "suggests", "enhances",
	"breaks", "conflicts", "provides", "replaces",
}

// decodeManifest reads a YAML package manifest. Relative source paths are
// resolved against the manifest's directory.
func decodeManifest(path string) (*Manifest, error) {
	// Internal DTOs for YAML deserialization
	type yamlRight struct {
		Years      string `yaml:"years"`
		Holder     string `yaml:"holder"`
		License    string `yaml:"license"`
		Disclaimer string `yaml:"disclaimer"`
	}
	type yamlCopyrightFiles struct {
		Path   string      `yaml:"path"`
		Rights []yamlRight `yaml:"rights"`
	}
	type yamlCopyright struct {
		Default []yamlRight          `yaml:"default"`
		Files   []yamlCopyrightFiles `yaml:"files"`
		Debian  []yamlRight          `yaml:"debian"`
	}
	type yamlFile struct {
		Source     string  `yaml:"source"`
		Path       string  `yaml:"path"`
		Content    *string `yaml:"content"`
		Executable bool    `yaml:"executable"`
	}
	type yamlChangelog struct {
		Distribution string   `yaml:"distribution"`
		Urgency      string   `yaml:"urgency"`
		Changes      []string `yaml:"changes"`
	}
	type yamlManifest struct {
		Name        string              `yaml:"name"`
		Packager    string              `yaml:"packager"`
		Description string              `yaml:"description"`
		About       string              `yaml:"about"`
		Epoch       string              `yaml:"epoch"`
		Version     string              `yaml:"version"`
		Classifiers yaml.Node           `yaml:"classifiers"`
		Relations   map[string][]string `yaml:"relations"`
		Fields      yaml.Node           `yaml:"fields"`
		Stage       string              `yaml:"stage"`
		Exclude     []string            `yaml:"exclude"`
		Files       []yamlFile          `yaml:"files"`
		Copyright   yamlCopyright       `yaml:"copyright"`
		Scripts     map[string]string   `yaml:"scripts"`
		Shlibs      []string            `yaml:"shlibs"`
		Changelog   yamlChangelog       `yaml:"changelog"`
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dto yamlManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	rights := func(in []yamlRight) []models.CopyrightRight {
		out := make([]models.CopyrightRight, len(in))
		for i, r := range in {
			out[i] = models.CopyrightRight(r)
		}
		return out
	}

	relations := make(map[string][]string)
	for key, values := range dto.Relations {
		key = strings.ToLower(key)
		if !isRelationKey(key) {
			return nil, fmt.Errorf("unknown relation %q", key)
		}
		relations[key] = values
	}

	fields, err := orderedFields(&dto.Fields)
	if err != nil {
		return nil, err
	}
	classifiers, err := classifierValues(&dto.Classifiers)
	if err != nil {
		return nil, err
	}

	// Map DTO to business object
	m := &Manifest{
		Spec: models.PackageSpec{
			Product: models.ProductMetadata{
				Name:        dto.Name,
				Packager:    dto.Packager,
				Description: dto.Description,
				About:       dto.About,
				Epoch:       dto.Epoch,
				Primary:     dto.Version,
				Classifiers: classifiers,
				Relations:   relations,
				Fields:      fields,
			},
			DebianCopyright: rights(dto.Copyright.Debian),
			Shlibs:          dto.Shlibs,
			Changelog: models.Changelog{
				Distribution: dto.Changelog.Distribution,
				Urgency:      dto.Changelog.Urgency,
				Body:         dto.Changelog.Changes,
			},
		},
		Stage:   resolve(dto.Stage),
		Exclude: dto.Exclude,
	}

	if len(dto.Copyright.Default) > 0 {
		m.Spec.Copyright = append(m.Spec.Copyright, models.CopyrightBlock{Rights: rights(dto.Copyright.Default)})
	}
	for _, f := range dto.Copyright.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("copyright files entry without a path")
		}
		m.Spec.Copyright = append(m.Spec.Copyright, models.CopyrightBlock{Path: f.Path, Rights: rights(f.Rights)})
	}

	for _, f := range dto.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("file entry without a path")
		}
		entry := models.InstallEntry{
			SourcePath:  resolve(f.Source),
			ArchivePath: f.Path,
			Executable:  f.Executable,
		}
		if f.Content != nil {
			entry.Content = []byte(*f.Content)
			entry.HasContent = true
		}
		m.Spec.Entries = append(m.Spec.Entries, entry)
	}

	if len(dto.Scripts) > 0 {
		m.Spec.Scripts = make(map[string][]string, len(dto.Scripts))
		for name, script := range dto.Scripts {
			if !isScriptName(name) {
				return nil, fmt.Errorf("unknown maintainer script %q", name)
			}
			m.Spec.Scripts[name] = strings.Split(strings.TrimRight(script, "\n"), "\n")
		}
	}

	return m, nil
}

// classifierValues reads the classifiers list. An unquoted "A :: B" is
// parsed by YAML as a mapping and is reported as such.
func classifierValues(node *yaml.Node) ([]string, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: classifiers must be a list", node.Line)
	}

	values := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: classifier must be a string, quote values containing \" :: \"", item.Line)
		}
		values = append(values, item.Value)
	}
	return values, nil
}

// orderedFields keeps the document order of the fields mapping
func orderedFields(node *yaml.Node) ([]models.Field, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: fields must be a mapping", node.Line)
	}

	fields := make([]models.Field, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: field %s must be a scalar", value.Line, key.Value)
		}
		fields = append(fields, models.Field{Key: key.Value, Value: value.Value})
	}
	return fields, nil
}

func isRelationKey(key string) bool {
	for _, k := range relationKeys {
		if k == key {
			return true
		}
	}
	return false
}

func isScriptName(name string) bool {
	switch name {
	case "preinst", "postinst", "prerm", "postrm":
		return true
	}
	return false
}
