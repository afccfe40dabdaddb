package referencedata

import "errors"

var (
	// ErrResourceNotFound means the dataset file does not exist or cannot be opened
	ErrResourceNotFound = errors.New("reference dataset not found")
	// ErrDecodingFailed means the dataset exists but is malformed
	ErrDecodingFailed = errors.New("reference dataset is malformed")
)
