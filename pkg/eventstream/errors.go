package eventstream

import "errors"

// ErrNilIdeaEvent indicates a nil idea event payload was provided to a publisher.
var ErrNilIdeaEvent = errors.New("nil idea event")
