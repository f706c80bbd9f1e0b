package model

import "time"

// SampleLabel is the binary potability classification of a water sample.
type SampleLabel string

const (
	LabelPotable    SampleLabel = "POTABLE"
	LabelNotPotable SampleLabel = "NOT_POTABLE"
)

// Valid reports whether the label is one of the known classifications.
func (l SampleLabel) Valid() bool {
	return l == LabelPotable || l == LabelNotPotable
}

// Sample is one classified water sample as produced by the evaluation
// pipeline. Alert rules and the persisted snapshot are both derived from
// the same Sample value, so a single evaluation never observes two
// different readings of the same field.
type Sample struct {
	Label         SampleLabel `json:"label"`
	PH            float64     `json:"ph_value"`
	ConfidencePct float64     `json:"confidence_pct"`
}

// SampleSnapshot is the most recent classification outcome, overwritten
// on every evaluation. At most one snapshot exists at a time.
type SampleSnapshot struct {
	Label         SampleLabel `json:"label"`
	PH            float64     `json:"ph_value"`
	ConfidencePct float64     `json:"confidence_pct"`
	ObservedAt    string      `json:"observed_at"`
}

// OperatorBinding links a human operator's messaging-channel identity to
// alert delivery. Overwritten wholesale by each bind; never merged.
type OperatorBinding struct {
	EndpointID  string `json:"endpoint_id"`
	DisplayName string `json:"display_name"`
}

// MaintenanceEntry is one operator field report. Entries are append-only;
// ordering is append order.
type MaintenanceEntry struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	AuthorEndpointID string    `json:"author_endpoint_id"`
	FreeText         string    `json:"free_text"`
}
