package utils

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// ToJSON marshals v into a datatypes.JSON column value.
func ToJSON(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// FromJSON unmarshals a datatypes.JSON column value into out.
func FromJSON(data datatypes.JSON, out interface{}) error {
	return json.Unmarshal(data, out)
}
