package model

// RemedyRecord is one entry in the static corpus of past remediations. The
// BaseSimilarity stands in for a pre-computed embedding distance; a real
// nearest-neighbor index would produce it at query time.
type RemedyRecord struct {
	ID             string  `json:"remedy_id" yaml:"id"`
	ErrorPattern   string  `json:"error_pattern" yaml:"error_pattern"`
	Resolution     string  `json:"resolution" yaml:"resolution"`
	Segment        string  `json:"customer_segment" yaml:"segment"`
	ResolveHours   float64 `json:"time_to_resolve_hrs" yaml:"resolve_hours"`
	Outcome        string  `json:"outcome" yaml:"outcome"`
	BaseSimilarity float64 `json:"similarity_score" yaml:"base_similarity"` // [0,1]
}
