package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON stores a free-form object in a single jsonb column. Used for
// audit payloads whose shape the caller defines, such as the
// quantitative inputs behind a fee record.
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}
}
