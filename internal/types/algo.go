package types

// AlgoKey is the closed set of algorithm families the engine ships.
// Dispatch on this type, never on free-form strings.
type AlgoKey string

const (
	AlgoMastery    AlgoKey = "mastery"
	AlgoRevision   AlgoKey = "revision"
	AlgoDifficulty AlgoKey = "difficulty"
	AlgoAdaptive   AlgoKey = "adaptive"
	AlgoMistakes   AlgoKey = "mistakes"
)

func (k AlgoKey) Valid() bool {
	switch k {
	case AlgoMastery, AlgoRevision, AlgoDifficulty, AlgoAdaptive, AlgoMistakes:
		return true
	default:
		return false
	}
}

func AllAlgoKeys() []AlgoKey {
	return []AlgoKey{AlgoMastery, AlgoRevision, AlgoDifficulty, AlgoAdaptive, AlgoMistakes}
}

// Version lifecycle states.
const (
	VersionActive       = "ACTIVE"
	VersionDeprecated   = "DEPRECATED"
	VersionExperimental = "EXPERIMENTAL"
)

// Run lifecycle states.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// RunTrigger identifies why a run happened, for audit only.
type RunTrigger string

const (
	TriggerManual  RunTrigger = "manual"
	TriggerSubmit  RunTrigger = "submit"
	TriggerNightly RunTrigger = "nightly"
	TriggerCron    RunTrigger = "cron"
	TriggerAPI     RunTrigger = "api"
)

func (t RunTrigger) Valid() bool {
	switch t {
	case TriggerManual, TriggerSubmit, TriggerNightly, TriggerCron, TriggerAPI:
		return true
	default:
		return false
	}
}
