package core

import "errors"

// ErrRepositoryUnavailable means a repository could not be cloned or a commit
// could not be resolved in it. It aborts the rest of that advisory only.
var ErrRepositoryUnavailable = errors.New("repository unavailable")

// ErrInvariantViolation means a parsed document names files outside its
// changed-file list.
var ErrInvariantViolation = errors.New("document keys outside changed files")
