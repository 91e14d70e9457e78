package api

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "cm_session"

// Cache-Control header values.
const (
	CachePrivate = "private, max-age=3600"
	CacheNoStore = "no-store"
)
