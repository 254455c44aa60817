package model

type Setting struct {
	ID          int64   `json:"id"`
	Key         string  `json:"key"`
	Value       string  `json:"value"`
	Description *string `json:"description"`
}
