// Package profile defines the canonical records produced by a profile analysis.
package profile

import (
	"encoding/json"
	"errors"
	"time"
)

// Common errors returned by the fetch, locate and analyze packages.
var (
	ErrFetchFailed      = errors.New("profile fetch failed")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrExtractionFailed = errors.New("profile JSON not found in page")
)

// MediaType indicates what kind of media a post carries.
type MediaType string

// Media type constants.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// EntitySet holds contact and entity signals extracted from free text.
// Every list is sorted and free of duplicates.
type EntitySet struct {
	Emails   []string `json:"emails" yaml:"emails"`
	Phones   []string `json:"phones" yaml:"phones"`
	URLs     []string `json:"urls" yaml:"urls"`
	Hashtags []string `json:"hashtags" yaml:"hashtags"`
	Mentions []string `json:"mentions" yaml:"mentions"`
}

// Empty reports whether no entity of any kind was found.
func (e EntitySet) Empty() bool {
	return len(e.Emails)+len(e.Phones)+len(e.URLs)+len(e.Hashtags)+len(e.Mentions) == 0
}

// Coordinates is a decimal latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Place is a reverse-geocoded location.
type Place struct {
	Address string         `json:"address" yaml:"address"`
	Raw     map[string]any `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Nullable marks a value that was attempted: a nil Value serializes as null,
// while a nil *Nullable field is omitted entirely.
type Nullable[T any] struct {
	Value *T
}

// Some returns a Nullable holding v.
func Some[T any](v T) *Nullable[T] { return &Nullable[T]{Value: &v} }

// None returns a Nullable that serializes as null.
func None[T any]() *Nullable[T] { return &Nullable[T]{} }

// Valid reports whether n holds a value.
func (n *Nullable[T]) Valid() bool { return n != nil && n.Value != nil }

// MarshalJSON implements json.Marshaler.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (n Nullable[T]) MarshalYAML() (any, error) {
	if n.Value == nil {
		return nil, nil
	}
	return *n.Value, nil
}

// Post is one recent media item. The normalizer creates it; the analyzer
// fills in the enrichment fields in place.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Post struct {
	ImageURL  *string   `json:"image_url" yaml:"image_url"`
	Caption   string    `json:"caption" yaml:"caption"`
	Shortcode string    `json:"shortcode" yaml:"shortcode"`
	Type      MediaType `json:"type" yaml:"type"`

	// Enrichment
	CaptionEntities EntitySet         `json:"caption_entities" yaml:"caption_entities"`
	DownloadedTo    *Nullable[string] `json:"downloaded_to,omitempty" yaml:"downloaded_to,omitempty"`
	EXIF            map[string]any    `json:"exif,omitzero" yaml:"exif,omitempty"`
	GPS             *Coordinates      `json:"gps,omitempty" yaml:"gps,omitempty"`
	ReverseGeocode  *Nullable[Place]  `json:"reverse_geocode,omitempty" yaml:"reverse_geocode,omitempty"`
}

// Profile is the canonical profile record.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Profile struct {
	Username      string  `json:"username" yaml:"username"`
	FullName      string  `json:"full_name" yaml:"full_name"`
	Bio           string  `json:"bio" yaml:"bio"`
	Followers     int64   `json:"followers" yaml:"followers"`
	Following     int64   `json:"following" yaml:"following"`
	Posts         int64   `json:"posts" yaml:"posts"`
	ProfilePicURL string  `json:"profile_pic_url" yaml:"profile_pic_url"`
	ExternalURL   string  `json:"external_url" yaml:"external_url"`
	IsVerified    bool    `json:"is_verified" yaml:"is_verified"`
	IsPrivate     bool    `json:"is_private" yaml:"is_private"`
	RecentPosts   []*Post `json:"recent_posts" yaml:"recent_posts"`

	BioEntities EntitySet `json:"bio_entities" yaml:"bio_entities"`

	// Run metadata
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"` // extraction strategy that produced the record
	FetchedAt time.Time `json:"fetched_at,omitzero" yaml:"fetched_at,omitempty"`
}
