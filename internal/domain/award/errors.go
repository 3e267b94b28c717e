package award

import "errors"

var (
	// ErrNoQualifyingThreshold means the score is below every tier. It is not a failure.
	ErrNoQualifyingThreshold = errors.New("no qualifying threshold")
	// ErrDefinitionNotFound means no definition carries the selected threshold.
	ErrDefinitionNotFound = errors.New("definition not found")
	// ErrTemplateNotFound means the definition's template key is unknown.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrAssetUnavailable means the template's base image could not be read.
	ErrAssetUnavailable = errors.New("asset unavailable")
	// ErrRenderFailed means compositing the award image failed.
	ErrRenderFailed = errors.New("render failed")
	// ErrStorageWriteFailed means upload or upsert failed after retries.
	ErrStorageWriteFailed = errors.New("storage write failed")
)
