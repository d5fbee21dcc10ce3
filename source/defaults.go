/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package source

import (
	"fmt"
	"net/http"
)

// supported source kinds
const (
	KindJSONUnix = "json_unix"
	KindJSONISO  = "json_iso"
	KindHeader   = "header"
)

// Spec describes a source in config
type Spec struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	URL    string `yaml:"url"`
	Field  string `yaml:"field,omitempty"`  // json kinds only
	Method string `yaml:"method,omitempty"` // header kind only
}

// Validate Spec is sane
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name must be specified")
	}
	if s.URL == "" {
		return fmt.Errorf("url must be specified for %q", s.Name)
	}
	switch s.Kind {
	case KindJSONUnix, KindJSONISO, KindHeader:
	default:
		return fmt.Errorf("kind of %q must be either %q, %q or %q", s.Name, KindJSONUnix, KindJSONISO, KindHeader)
	}
	return nil
}

// DefaultSpecs is the list of sources in the order they are tried.
// JSON APIs go first since Date headers only have second resolution.
var DefaultSpecs = []Spec{
	{
		Name:  "WorldTimeAPI",
		Kind:  KindJSONUnix,
		URL:   "https://worldtimeapi.org/api/timezone/Etc/UTC",
		Field: DefaultUnixField,
	},
	{
		Name: "NIST (nist.gov)",
		Kind: KindHeader,
		URL:  "https://www.nist.gov",
	},
	{
		Name:  "TimeAPI.io",
		Kind:  KindJSONISO,
		URL:   "https://timeapi.io/api/time/current/zone?timeZone=UTC",
		Field: DefaultISOField,
	},
	{
		Name: "Google Header",
		Kind: KindHeader,
		URL:  "https://www.google.com",
	},
}

// New builds a Source from Spec
func New(spec Spec, client *http.Client) (Source, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindJSONUnix:
		return NewJSONUnix(spec.Name, spec.URL, spec.Field, client), nil
	case KindJSONISO:
		return NewJSONISO(spec.Name, spec.URL, spec.Field, client), nil
	default:
		return NewHeader(spec.Name, spec.URL, spec.Method, client), nil
	}
}

// FromSpecs builds sources keeping the order of specs
func FromSpecs(specs []Spec, client *http.Client) ([]Source, error) {
	sources := make([]Source, 0, len(specs))
	for _, spec := range specs {
		s, err := New(spec, client)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}
