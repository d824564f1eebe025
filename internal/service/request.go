package service

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Region is one of the calculator regions the assistant can target.
type Region string

const (
	RegionTokyo     Region = "ap-northeast-1"
	RegionVirginia  Region = "us-east-1"
	RegionIreland   Region = "eu-west-1"
	RegionSingapore Region = "ap-southeast-1"
)

// DefaultRegion is used when a request names no region.
const DefaultRegion = RegionTokyo

// ParseRegion accepts only the supported region codes.
func ParseRegion(s string) (Region, bool) {
	switch r := Region(s); r {
	case RegionTokyo, RegionVirginia, RegionIreland, RegionSingapore:
		return r, true
	}
	return "", false
}

// Provenance records which interpreter tier produced a request.
type Provenance string

const (
	ProvenanceLocal  Provenance = "LOCAL"
	ProvenanceRemote Provenance = "REMOTE"
)

// ErrNoServices is returned by Validate for a request without services.
var ErrNoServices = errors.New("request contains no services")

// ParsedRequest is the interpreter's output. Services are in processing order.
type ParsedRequest struct {
	Services      []Spec     `json:"services"`
	Region        Region     `json:"region"`
	Optimizations []string   `json:"optimizations"`
	Provenance    Provenance `json:"provenance"`
}

// Validate reports whether the request can be executed.
func (r ParsedRequest) Validate() error {
	if len(r.Services) == 0 {
		return ErrNoServices
	}
	if _, ok := ParseRegion(string(r.Region)); !ok {
		return fmt.Errorf("unsupported region %q", r.Region)
	}
	return nil
}

// Kinds returns the kinds of the request's services, in order.
func (r ParsedRequest) Kinds() []Kind {
	kinds := make([]Kind, len(r.Services))
	for i, s := range r.Services {
		kinds[i] = s.Kind()
	}
	return kinds
}

// MarshalJSON writes each service with its "type" tag next to its fields.
func (r ParsedRequest) MarshalJSON() ([]byte, error) {
	services := make([]json.RawMessage, 0, len(r.Services))
	for _, s := range r.Services {
		raw, err := MarshalSpec(s)
		if err != nil {
			return nil, err
		}
		services = append(services, raw)
	}
	optimizations := r.Optimizations
	if optimizations == nil {
		optimizations = []string{}
	}
	return json.Marshal(struct {
		Services      []json.RawMessage `json:"services"`
		Region        Region            `json:"region"`
		Optimizations []string          `json:"optimizations"`
		Provenance    Provenance        `json:"provenance"`
	}{services, r.Region, optimizations, r.Provenance})
}

// MarshalSpec encodes a spec as a flat object tagged with its kind.
func MarshalSpec(s Spec) ([]byte, error) {
	fields, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal %s spec: %w", s.Kind(), err)
	}
	var m map[string]any
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, fmt.Errorf("marshal %s spec: %w", s.Kind(), err)
	}
	m["type"] = s.Kind()
	return json.Marshal(m)
}
