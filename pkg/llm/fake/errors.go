package fake

import "errors"

var errEmbedFailed = errors.New("fake: embedding failed")
