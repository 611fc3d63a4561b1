package state

// Event records the last provider mutation applied for a target. Kept purely
// for observability; the reconciliation path never reads it back, records are
// always looked up fresh from the provider.
type Event struct {
	Domain string `json:"domain"`
	Type   string `json:"type"`
	Old    string `json:"old,omitempty"`
	New    string `json:"new"`
	Op     string `json:"op"`
	Time   int64  `json:"time"`
}
