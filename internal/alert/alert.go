// Package alert manages emergency alerts and fans each newly published,
// active alert out to registered devices.
package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/regions"
)

var ErrNotFound = errors.New("alert not found")

// Severity is an alert's urgency tier.
type Severity string

const (
	Low      Severity = "LOW"
	Medium   Severity = "MEDIUM"
	High     Severity = "HIGH"
	Critical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case Low, Medium, High, Critical:
		return true
	}
	return false
}

const (
	DefaultSource   = "NDMA"
	allRegionsLabel = "All Regions"
)

// Alert is a published emergency alert.
type Alert struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	RegionTags      []string        `json:"region_tags"`
	Severity        Severity        `json:"severity"`
	Source          string          `json:"source"`
	Geometry        json.RawMessage `json:"geometry"`
	IsActive        bool            `json:"is_active"`
	PublishedAt     time.Time       `json:"published_at"`
	ExpiresAt       *time.Time      `json:"expires_at"`
	CreatedBy       *uuid.UUID      `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	IsExpired       bool            `json:"is_expired"`
	AffectedRegions []string        `json:"affected_regions"`
}

// Finalize fills the derived fields as of now.
func (a *Alert) Finalize(now time.Time) {
	a.IsExpired = a.ExpiresAt != nil && now.After(*a.ExpiresAt)
	if len(a.RegionTags) == 0 {
		a.AffectedRegions = []string{allRegionsLabel}
	} else {
		a.AffectedRegions = a.RegionTags
	}
}

// CreateInput is an admin's new alert.
type CreateInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required"`
	RegionTags  []string        `json:"region_tags" validate:"omitempty,dive,required,max=100"`
	Severity    Severity        `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Source      string          `json:"source" validate:"max=100"`
	Geometry    json.RawMessage `json:"geometry"`
	IsActive    *bool           `json:"is_active"`
	PublishedAt *time.Time      `json:"published_at"`
	ExpiresAt   *time.Time      `json:"expires_at"`
}

// Normalize fills defaults and de-duplicates region tags.
func (in *CreateInput) Normalize(now time.Time) {
	if in.Severity == "" {
		in.Severity = Medium
	}
	if in.Source == "" {
		in.Source = DefaultSource
	}
	if in.IsActive == nil {
		active := true
		in.IsActive = &active
	}
	if in.PublishedAt == nil {
		in.PublishedAt = &now
	}
	in.RegionTags = regions.Dedupe(in.RegionTags)
}

// Validate checks what struct tags cannot. It returns a field → message map,
// empty when the input is valid.
func (in CreateInput) Validate() map[string]string {
	fields := map[string]string{}
	if !geometryOK(in.Geometry) {
		fields["geometry"] = "must be a JSON object"
	}
	if in.ExpiresAt != nil && in.PublishedAt != nil && !in.ExpiresAt.After(*in.PublishedAt) {
		fields["expires_at"] = "must be after published_at"
	}
	return fields
}

// UpdateInput carries the mutable alert fields. Severity and region tags are
// fixed at creation and absent here.
type UpdateInput struct {
	Title       *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description" validate:"omitempty,min=1"`
	Source      *string         `json:"source" validate:"omitempty,max=100"`
	Geometry    json.RawMessage `json:"geometry"`
	IsActive    *bool           `json:"is_active"`
	ExpiresAt   *time.Time      `json:"expires_at"`
}

// Validate mirrors CreateInput.Validate for the mutable fields.
func (in UpdateInput) Validate() map[string]string {
	fields := map[string]string{}
	if !geometryOK(in.Geometry) {
		fields["geometry"] = "must be a JSON object"
	}
	return fields
}

// Filter narrows alert listings. Only active alerts are ever listed.
type Filter struct {
	Region         string
	Severity       Severity
	Source         string // case-insensitive substring
	Start          *time.Time
	End            *time.Time
	ExcludeExpired bool
}

// Created is the result of publishing an alert: the stored alert and the
// outcome of its notification fan-out.
type Created struct {
	Alert
	NotificationSent  bool    `json:"notification_sent"`
	NotificationError *string `json:"notification_error"`
}

func geometryOK(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	return trimmed[0] == '{' && json.Valid(trimmed)
}

// geometryArg converts raw GeoJSON into a query argument, NULL when absent.
func geometryArg(raw json.RawMessage) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return string(trimmed)
}
