package session

// Store persists at most one session record.
//
// Load reports absence rather than failing when nothing is stored or when the
// stored record does not parse; a corrupt record is discarded so the next
// Load starts clean. Save and Clear are local operations with no retry
// semantics.
type Store interface {
	Load() (Session, bool, error)
	Save(Session) error
	Clear() error
}
