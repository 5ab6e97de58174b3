package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is the most portable, lowest-dependency option. Persisted images always
// record the codec name, so the default can change over time without breaking
// existing manifests.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used for device manifests.
//
// Existing persisted manifests are self-describing (they store the codec name)
// and are opened by selecting the appropriate codec by name.
var Default Codec = GoJSON{}
