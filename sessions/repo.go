package sessions

// Repo is the durable client side storage for the session record.
type Repo interface {
	// Save replaces the record stored under key
	Save(key string, record *Record) error

	// Load returns the record stored under key, or nil with no error when there is none
	Load(key string) (*Record, error)

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(key string) error
}
