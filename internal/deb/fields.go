package deb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/devops-csmake/debpack/internal/models"
)

// fieldKind selects how a control field value is derived
type fieldKind int

const (
	kindPassThrough fieldKind = iota
	kindPackageName
	kindPackageList
	kindMetadata
	kindClassifier
	kindAppendingClassifier
)

// String returns the handler name
func (k fieldKind) String() string {
	switch k {
	case kindPackageName:
		return "package-name"
	case kindPackageList:
		return "package-list"
	case kindMetadata:
		return "metadata"
	case kindClassifier:
		return "classifier"
	case kindAppendingClassifier:
		return "appending-classifier"
	default:
		return "pass-through"
	}
}

// fieldMapping ties a control field to its handler and to the product
// metadata it is derived from
type fieldMapping struct {
	field  ControlField
	kind   fieldKind
	source string
}

// productFields lists the mapped control fields in the order they are
// written to control
var productFields = []fieldMapping{
	{FieldPackage, kindPackageName, "name"},
	{FieldMaintainer, kindMetadata, "packager"},
	{FieldDescription, kindMetadata, "description"},
	{FieldDepends, kindPackageList, "depends"},
	{FieldRecommends, kindPackageList, "recommends"},
	{FieldSuggests, kindPackageList, "suggests"},
	{FieldEnhances, kindPackageList, "enhances"},
	{FieldPreDepends, kindPackageList, "pre-depends"},
	{FieldBreaks, kindPackageList, "breaks"},
	{FieldConflicts, kindPackageList, "conflicts"},
	{FieldProvides, kindPackageList, "provides"},
	{FieldReplaces, kindPackageList, "replaces"},
	{FieldSection, kindClassifier, "classifiers"},
	{FieldPythonLib, kindAppendingClassifier, "classifiers"},
}

// kindFor returns the handler for a field name; unknown fields pass through
func kindFor(field string) fieldKind {
	for _, m := range productFields {
		if strings.EqualFold(string(m.field), field) {
			return m.kind
		}
	}
	return kindPassThrough
}

// classifierRank maps a classifier to a value and a priority.
// Lower priority numbers win.
type classifierRank struct {
	value    string
	priority int
}

// classifierMaps holds the classifier translation table of each
// classifier-driven field
var classifierMaps = map[ControlField]map[string]classifierRank{
	FieldSection: {
		"Topic :: Software Development :: Libraries :: Python Modules": {"python", 1},
		"Programming Language :: Java":                                 {"java", 1},
		"Topic :: Software Development :: Libraries":                   {"libs", 5},
		"Intended Audience :: Developers":                              {"devel", 9},

		"Topic :: System :: Installation/Setup":        {"admin", 10},
		"Topic :: System :: Systems Administration":    {"admin", 11},
		"Topic :: Software Development :: Build Tools": {"devel", 12},
		"Topic :: Software Development":                {"devel", 13},
		"Topic :: System :: Networking":                {"net", 14},
		"Topic :: Internet :: WWW/HTTP":                {"web", 15},
		"Topic :: Internet":                            {"net", 16},
		"Topic :: Database":                            {"database", 17},
		"Topic :: Utilities":                           {"utils", 18},
		"Topic :: Documentation":                       {"doc", 19},
		"Programming Language :: Python":               {"python", 20},
	},
	FieldPythonLib: {
		"Programming Language :: Python :: 2": {"python2", 1},
		"Programming Language :: Python :: 3": {"python3", 2},
	},
}

// classifierDefaults is used when no classifier matches
var classifierDefaults = map[ControlField]string{
	FieldSection: "misc",
}

// normalizePackageName lowercases a package name and replaces characters
// Debian does not allow in names
func normalizePackageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "-", " ", "-").Replace(name)
}

// normalizeRelation normalizes the package name of a relation while
// keeping any version constraint, e.g. "Foo_Bar (>= 1.0)"
func normalizeRelation(rel string) string {
	rel = strings.TrimSpace(rel)
	name, rest, found := strings.Cut(rel, " ")
	if !found {
		if i := strings.IndexAny(rel, "(["); i > 0 {
			return normalizePackageName(rel[:i]) + " " + rel[i:]
		}
		return normalizePackageName(rel)
	}
	return normalizePackageName(name) + " " + strings.TrimSpace(rest)
}

// render derives the control value from the raw inputs.
// The second return is false when nothing should be written.
func (k fieldKind) render(field ControlField, raw []string) (string, bool, error) {
	switch k {
	case kindPackageName:
		if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
			return "", false, fmt.Errorf("%s is empty", field)
		}
		return normalizePackageName(raw[0]), true, nil

	case kindPackageList:
		var out []string
		for _, rel := range raw {
			for _, alt := range strings.Split(rel, ",") {
				if strings.TrimSpace(alt) == "" {
					continue
				}
				out = append(out, normalizeAlternatives(alt))
			}
		}
		if len(out) == 0 {
			return "", false, nil
		}
		return strings.Join(out, ", "), true, nil

	case kindMetadata:
		if len(raw) == 0 || raw[0] == "" {
			return "", false, nil
		}
		return raw[0], true, nil

	case kindClassifier:
		if v, ok := bestClassifier(field, raw); ok {
			return v, true, nil
		}
		// An explicit value such as "Section: utils" is not a classifier
		if len(raw) == 1 && !strings.Contains(raw[0], "::") && raw[0] != "" {
			return raw[0], true, nil
		}
		if def, ok := classifierDefaults[field]; ok {
			return def, true, nil
		}
		return "", false, nil

	case kindAppendingClassifier:
		values := matchedClassifiers(field, raw)
		if len(values) == 0 {
			return "", false, nil
		}
		return strings.Join(values, ","), true, nil

	default:
		if len(raw) == 0 {
			return "", false, nil
		}
		return strings.Join(raw, ", "), true, nil
	}
}

// normalizeAlternatives normalizes every alternative of "a | b"
func normalizeAlternatives(rel string) string {
	alts := strings.Split(rel, "|")
	for i, alt := range alts {
		alts[i] = normalizeRelation(alt)
	}
	return strings.Join(alts, " | ")
}

// bestClassifier picks the value of the lowest priority matching classifier
func bestClassifier(field ControlField, classifiers []string) (string, bool) {
	table := classifierMaps[field]
	best := classifierRank{}
	found := false
	for _, c := range classifiers {
		r, ok := table[strings.TrimSpace(c)]
		if !ok {
			continue
		}
		if !found || r.priority < best.priority {
			best = r
			found = true
		}
	}
	return best.value, found
}

// matchedClassifiers returns every distinct matched value, ordered by priority
func matchedClassifiers(field ControlField, classifiers []string) []string {
	table := classifierMaps[field]
	seen := make(map[string]bool)
	var ranks []classifierRank
	for _, c := range classifiers {
		r, ok := table[strings.TrimSpace(c)]
		if !ok || seen[r.value] {
			continue
		}
		seen[r.value] = true
		ranks = append(ranks, r)
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].priority < ranks[j].priority })

	values := make([]string, len(ranks))
	for i, r := range ranks {
		values[i] = r.value
	}
	return values
}

// sourceValues returns the raw product values for a mapping source
func sourceValues(p *models.ProductMetadata, source string) []string {
	switch source {
	case "name":
		return []string{p.Name}
	case "packager":
		return []string{p.Packager}
	case "description":
		return []string{p.Description}
	case "classifiers":
		return p.Classifiers
	default:
		return p.Relations[source]
	}
}

// MapProduct maps product metadata onto ordered control fields.
// Mapped fields come first, then the product's extra fields. An extra
// field naming a mapped field replaces its value in place.
func MapProduct(p *models.ProductMetadata) (*Metadata, error) {
	meta := NewMetadata()

	for _, m := range productFields {
		value, ok, err := m.kind.render(m.field, sourceValues(p, m.source))
		if err != nil {
			return nil, err
		}
		if ok {
			meta.Set(string(m.field), value)
		}
	}

	for _, f := range p.Fields {
		key := canonicalKey(f.Key)
		kind := kindFor(key)
		value, ok, err := kind.render(ControlField(key), []string{f.Value})
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		if ok {
			meta.Set(key, value)
		}
	}

	return meta, nil
}

// canonicalKey returns the spelling of a known field, or key unchanged
func canonicalKey(key string) string {
	key = strings.TrimSpace(key)
	for _, m := range productFields {
		if strings.EqualFold(string(m.field), key) {
			return string(m.field)
		}
	}
	return key
}
