package db

// DB defines the interface for database operations used by the state keeper.
type DB interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// IteratePrefix visits every key/value pair whose key starts with prefix,
	// in ascending key order. Returning false from fn stops the walk.
	IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error
	Close() error
}
