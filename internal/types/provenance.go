package types

import "github.com/google/uuid"

// Provenance links a stored result back to the algorithm version, parameter
// set and execution that produced it.
type Provenance struct {
	AlgoVersionID uuid.UUID
	ParamsID      uuid.UUID
	RunID         uuid.UUID
}
