package journal

import "errors"

var (
	errEmptyReference = errors.New("empty reference")

	// ErrNoTargetAccount is returned by Parse when the tokenizer has no account configured.
	ErrNoTargetAccount = errors.New("journal: no target account configured")
)
