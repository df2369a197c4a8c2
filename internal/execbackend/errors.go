package execbackend

import "errors"

// errClosed is returned by ThreadBackend.Execute after Close has run.
var errClosed = errors.New("execbackend: thread backend is closed")
