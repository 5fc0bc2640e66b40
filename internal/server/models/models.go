// Package models defines the catalog row types shared by repositories and
// services.
package models

import "time"

// DateTimeFormat is the canonical timestamp layout stored in the catalog.
const DateTimeFormat = "2006-01-02 15:04:05"

// Now formats the current UTC time in the catalog layout.
func Now() string {
	return time.Now().UTC().Format(DateTimeFormat)
}

// Crate is one registry crate. CanonName is the lower-cased,
// hyphen-to-underscore form of Name; the two map one-to-one.
type Crate struct {
	ID            int64
	Name          string
	CanonName     string
	Description   *string
	CreatedAt     string
	UpdatedAt     string
	Downloads     int64
	Documentation *string
	Repository    *string
}

// Author is a registered account. Passwd may be absent when only an external
// identity is attached.
type Author struct {
	ID       int64
	Email    string
	Name     string
	Passwd   *string
	GithubID *string
	GitlabID *string
}

// Salt is the per-author random value used with the password KDF. One-to-one
// with Author, never exposed.
type Salt struct {
	ID       int64
	Salt     string
	AuthorID int64
}

// Session is an opaque browser session. Rows may outlive Expiry until the
// janitor removes them.
type Session struct {
	ID       string
	AuthorID *int64
	Expiry   string
	Data     string
}

// AuthorToken is an opaque bearer credential for the API.
type AuthorToken struct {
	ID       int64
	Name     string
	Token    string
	AuthorID int64
}

type Keyword struct {
	ID   int64
	Name string
}

type Category struct {
	ID          int64
	Tag         string
	Name        string
	Description string
}

// CrateBadge is one badge attached to a crate; Params is a JSON object.
type CrateBadge struct {
	ID        int64
	CrateID   int64
	BadgeType string
	Params    string
}
