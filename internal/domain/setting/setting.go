package setting

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrSettingNotFound = errors.New("setting not found")

// Setting is a key/JSON value pair in the system settings store
type Setting struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// Decode unmarshals the stored value into v
func (s Setting) Decode(v interface{}) error {
	return json.Unmarshal(s.Value, v)
}

type Repository interface {
	Get(ctx context.Context, key string) (Setting, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Upsert marshals value to JSON and stores it under key
	Upsert(ctx context.Context, key string, value interface{}) error
}
