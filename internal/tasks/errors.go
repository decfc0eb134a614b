package tasks

import "errors"

var errInvalidChild = errors.New("tasks: completed child position not found among node's children")
