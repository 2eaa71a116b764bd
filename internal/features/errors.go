package features

import "errors"

var (
	ErrNonPositiveHeight = errors.New("height must be greater than 0")
	ErrUnknownAnswer     = errors.New("answer is neither a presence nor an absence value")
	ErrMissingFeature    = errors.New("no value for feature")
	ErrSchemaMismatch    = errors.New("feature vector does not match model schema")
)
