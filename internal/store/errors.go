package store

import "errors"

var (
	// ErrPromptNotFound is returned when no evolving prompt exists for an id.
	ErrPromptNotFound = errors.New("store: prompt not found")
	// ErrVersionNotFound is returned when a rollback target version is not
	// present in the prompt's history.
	ErrVersionNotFound = errors.New("store: version not found in history")
	// ErrMissingBasePrompt is returned when creating a prompt without a base
	// prompt text.
	ErrMissingBasePrompt = errors.New("store: base prompt required to create prompt")
	// ErrProposalNotFound is returned when no pending proposal matches.
	ErrProposalNotFound = errors.New("store: proposal not found")
	// ErrProfileNotFound is returned when no preference profile exists.
	ErrProfileNotFound = errors.New("store: profile not found")
)
