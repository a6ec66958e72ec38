package db

import (
	"database/sql"
	"encoding/json"
)

// MarshalJSONB encodes value for a JSONB column; nil becomes SQL NULL.
func MarshalJSONB(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

// UnmarshalJSONB decodes a nullable JSONB column into dst. NULL leaves dst untouched.
func UnmarshalJSONB(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}
