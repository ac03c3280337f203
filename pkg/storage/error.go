package storage

// NotFoundError is returned when an idea doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "idea not found"
	}

	return "idea not found: " + e.ID
}
