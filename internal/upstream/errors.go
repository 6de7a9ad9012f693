package upstream

import "errors"

// ErrNotFound means the upstream marketplace authoritatively reports
// the item does not exist. Only this error justifies deactivating a
// local record.
var ErrNotFound = errors.New("upstream item not found")

// ErrUnavailable means the request failed transiently (network error,
// rate limit, server error). Callers retry or skip; they must never
// deactivate on this basis alone.
var ErrUnavailable = errors.New("upstream temporarily unavailable")
