package models

// BatchDelta lists the batch rows touched by one committed adjustment, in the
// shape the persistence layer needs: rows to insert, rows whose quantity
// changed, and ids to delete.
type BatchDelta struct {
	Created    []Batch
	Updated    []Batch
	RemovedIDs []string
}
