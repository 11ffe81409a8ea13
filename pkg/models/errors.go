package models

import "errors"

var ErrEmptyDescription = errors.New("models: issue description is empty after trimming whitespace")
