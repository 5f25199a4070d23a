/*
Copyright 2024 Blnk Finance Authors.

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

package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	ReferencePrefix   = "ref"
	SongRequestPrefix = "req"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New() // Generate a new UUID.
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr) // Append the module as a suffix to the UUID.
	return idWithSuffix
}

// NewReference returns a fresh payment reference. References are random v4
// UUIDs and are never reused within a process.
func NewReference() string {
	return GenerateUUIDWithSuffix(ReferencePrefix)
}

// NewSongRequestID returns a fresh song request identifier.
func NewSongRequestID() string {
	return GenerateUUIDWithSuffix(SongRequestPrefix)
}

// Normalize trims surrounding whitespace from the payload fields.
func (p SongPayload) Normalize() SongPayload {
	return SongPayload{
		RequesterName: strings.TrimSpace(p.RequesterName),
		SongTitle:     strings.TrimSpace(p.SongTitle),
	}
}
