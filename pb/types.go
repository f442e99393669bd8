// Package pb defines the RPC message types and service descriptors of the
// wire interface (spec §6) by hand, the way protoc-gen-go-grpc would emit
// them from a .proto file — without a .proto file or a protoc step, since the
// wire interface deliberately leaves framing out of scope beyond message
// compatibility.
package pb

// Episode mirrors the data model's Episode entity. ActivationVector values
// are carried as float32 over JSON for wire compactness; ConceptIDs preserve
// capture order.
type Episode struct {
	ID               string            `json:"id"`
	CreatedAt        int64             `json:"created_at"`
	ConceptIDs       []uint64          `json:"concept_ids"`
	ActivationVector []float32         `json:"activation_vector"`
	Meta             map[string]string `json:"meta"`
}

// SpectralMode mirrors the data model's SpectralMode entity. Eigenvalue is
// split into real/imaginary parts since complex64 has no canonical JSON form.
type SpectralMode struct {
	ModeID       string             `json:"mode_id"`
	EigenvalueRe float64            `json:"eigenvalue_re"`
	EigenvalueIm float64            `json:"eigenvalue_im"`
	Coefficients map[uint64]float64 `json:"coefficients"`
	Stability    float64            `json:"stability"`
	LastSeenAt   int64              `json:"last_seen_at"`
}

// ActivationTrace is one entry of ProcessActivationBatch's input.
type ActivationTrace struct {
	EpisodeID  string    `json:"episode_id"`
	Step       int       `json:"step"`
	Activation []float32 `json:"activation"`
}

// HealthStatus is the shared response of every service's HealthCheck RPC.
type HealthStatus struct {
	Status  string `json:"status"` // HEALTHY, DEGRADED, READ_ONLY
	Message string `json:"message"`
}
