package config

import "errors"

// ErrConfigInvalid is wrapped by Validate's field-specific messages so
// callers can test with errors.Is(err, config.ErrConfigInvalid).
var ErrConfigInvalid = errors.New("config: invalid")
