package model

// Record is one data record. Data is a nested JSON object whose keys are
// attribute URIs; repeated values are JSON arrays.
type Record struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}
