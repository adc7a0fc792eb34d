package profile

// Snapshot is the user's identity snapshot: the stable self-knowledge that
// frames each weekly review. Lists are stored as JSON arrays under flat keys,
// the bottleneck as a plain string.
type Snapshot struct {
	Priorities []string `json:"priorities"`
	Strengths  []string `json:"strengths"`
	Failures   []string `json:"failures"`
	Bottleneck string   `json:"bottleneck"`
}
