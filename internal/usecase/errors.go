package usecase

import "errors"

// ErrUnknownSymbol is returned for symbols outside the configured universe.
var ErrUnknownSymbol = errors.New("unknown symbol")

// ErrNotReady is returned while a symbol has no published snapshot yet,
// either because the feed is still warming up or the first analysis pass
// has not completed.
var ErrNotReady = errors.New("snapshot not ready")
