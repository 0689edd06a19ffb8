package domain

// HistoryStore persists install records (BoltDB + memory).
type HistoryStore interface {
	Record(rec InstallRecord) error
	Get(scene string) (InstallRecord, bool)
	List() []InstallRecord
	Clear() error

	Close() error
}
