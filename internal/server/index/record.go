// Package index manages the crate index: a git working tree of per-crate
// files, one JSON object per line, one line per published version. Two
// interchangeable managers publish changes to the remote: one drives the git
// binary as a subprocess, the other uses go-git in process.
package index

import (
	"github.com/Masterminds/semver/v3"
)

// DependencyKindNormal is the default dependency kind when a publish request
// leaves it unset.
const DependencyKindNormal = "normal"

// Record describes one published version of a crate: one line of the crate's
// index file.
type Record struct {
	Name     string              `json:"name"`
	Vers     *semver.Version     `json:"vers"`
	Deps     []Dependency        `json:"deps"`
	Cksum    string              `json:"cksum"`
	Features map[string][]string `json:"features"`
	Yanked   bool                `json:"yanked"`
	Links    *string             `json:"links,omitempty"`
}

// Dependency describes one dependency of a crate version, in the layout the
// Cargo client reads from the index.
type Dependency struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          *string  `json:"target"`
	Kind            string   `json:"kind"`
	Registry        *string  `json:"registry,omitempty"`
	Package         *string  `json:"package,omitempty"`
}

// ConfigFile is the `config.json` document at the root of the index tree,
// telling clients where to download crates and reach the API.
type ConfigFile struct {
	DL  string `json:"dl"`
	API string `json:"api"`
}
