package services

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/server/index"
)

// Metadata is the JSON document at the head of a publish frame, as sent by
// the Cargo client.
type Metadata struct {
	Name          string                       `json:"name"`
	Vers          string                       `json:"vers"`
	Deps          []MetadataDependency         `json:"deps"`
	Features      map[string][]string          `json:"features"`
	Authors       []string                     `json:"authors"`
	Description   *string                      `json:"description"`
	Documentation *string                      `json:"documentation"`
	Homepage      *string                      `json:"homepage"`
	Readme        *string                      `json:"readme"`
	ReadmeFile    *string                      `json:"readme_file"`
	Keywords      []string                     `json:"keywords"`
	Categories    []string                     `json:"categories"`
	License       *string                      `json:"license"`
	LicenseFile   *string                      `json:"license_file"`
	Repository    *string                      `json:"repository"`
	Links         *string                      `json:"links"`
	Badges        map[string]map[string]string `json:"badges"`
}

type MetadataDependency struct {
	Name            string   `json:"name"`
	VersionReq      string   `json:"version_req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          *string  `json:"target"`
	Kind            *string  `json:"kind"`
	Registry        *string  `json:"registry"`
	ExplicitName    *string  `json:"explicit_name_in_toml"`
}

// DecodeMetadata parses and minimally validates the metadata section.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrBadMetadata, err)
	}
	if meta.Name == "" {
		return nil, fmt.Errorf("%w: missing crate name", common.ErrBadMetadata)
	}
	if meta.Vers == "" {
		return nil, fmt.Errorf("%w: missing crate version", common.ErrBadMetadata)
	}
	return &meta, nil
}

// Version parses the published version. Publish requires a strict semver.
func (m *Metadata) Version() (*semver.Version, error) {
	vers, err := semver.StrictNewVersion(m.Vers)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %s", common.ErrBadSemver, m.Vers, err)
	}
	return vers, nil
}

// IndexRecord converts the metadata into the index line for this version,
// resolving renamed dependencies the way the index format expects: the line
// carries the name as used by the crate, with the registry package name under
// "package".
func (m *Metadata) IndexRecord(vers *semver.Version, cksum string) index.Record {
	deps := make([]index.Dependency, 0, len(m.Deps))
	for _, dep := range m.Deps {
		name := dep.Name
		var pkg *string
		if dep.ExplicitName != nil {
			name = *dep.ExplicitName
			original := dep.Name
			pkg = &original
		}
		kind := index.DependencyKindNormal
		if dep.Kind != nil && *dep.Kind != "" {
			kind = *dep.Kind
		}
		features := dep.Features
		if features == nil {
			features = []string{}
		}
		deps = append(deps, index.Dependency{
			Name:            name,
			Req:             dep.VersionReq,
			Features:        features,
			Optional:        dep.Optional,
			DefaultFeatures: dep.DefaultFeatures,
			Target:          dep.Target,
			Kind:            kind,
			Registry:        dep.Registry,
			Package:         pkg,
		})
	}

	features := m.Features
	if features == nil {
		features = map[string][]string{}
	}

	return index.Record{
		Name:     m.Name,
		Vers:     vers,
		Deps:     deps,
		Cksum:    cksum,
		Features: features,
		Yanked:   false,
		Links:    m.Links,
	}
}

// knownBadgeTypes is the closed set of badge kinds the registry accepts.
// Anything else is dropped and reported in the publish warnings.
var knownBadgeTypes = map[string]struct{}{
	"appveyor":                          {},
	"azure-devops":                      {},
	"circle-ci":                         {},
	"cirrus-ci":                         {},
	"codecov":                           {},
	"coveralls":                         {},
	"gitlab":                            {},
	"is-it-maintained-issue-resolution": {},
	"is-it-maintained-open-issues":      {},
	"maintenance":                       {},
	"travis-ci":                         {},
}

func isKnownBadgeType(badgeType string) bool {
	_, ok := knownBadgeTypes[badgeType]
	return ok
}
