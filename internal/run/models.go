package run

// SubmitRequest carries one closed run: the GPS path and the performance
// stats the mobile client measured over it.
type SubmitRequest struct {
	RawCoordinates  [][]float64 `json:"raw_coordinates"`
	DurationSeconds float64     `json:"duration_seconds"`
	Laps            int         `json:"laps"`
	AvgSpeed        float64     `json:"avg_speed"`
}

// SubmitResponse reports the evaluation verdict. Exactly one of Created,
// Captured, Defended is true.
type SubmitResponse struct {
	Created       bool    `json:"created"`
	Captured      bool    `json:"captured"`
	Defended      bool    `json:"defended"`
	TerritoryID   string  `json:"territory_id,omitempty"`
	NewOwner      string  `json:"new_owner,omitempty"`
	PreviousOwner string  `json:"previous_owner,omitempty"`
	DefenderName  string  `json:"defender_name,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	AreaM2        float64 `json:"area_m2,omitempty"`
}
