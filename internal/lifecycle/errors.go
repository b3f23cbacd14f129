package lifecycle

import "errors"

var ErrNoAuctions = errors.New("no auctions to advance")
