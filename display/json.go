package display

import (
	"encoding/json"
	"os"
)

// CompactEnv turns off indentation, for piping into other tools
const CompactEnv = "HIREPANEL_JSON_COMPACT"

// MarshalJSON marshals JSON pretty-printed unless compact output was asked for
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv(CompactEnv) != "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
