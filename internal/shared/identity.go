package shared

// Identity is the read-only caller context injected into business objects.
// It never exposes raw session internals.
type Identity struct {
	UserID  int64
	Profile int64
}
