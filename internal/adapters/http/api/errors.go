package api

import "errors"

// ErrBadRequest marks a request the handler could not parse.
var ErrBadRequest = errors.New("bad request")
