package conquest

// Battle score weights. Fixed for a deployment; changing them reshuffles
// every standing score comparison.
const (
	weightSpeed = 1000.0
	weightLaps  = 10.0
)

// Score converts run performance into a comparable battle score. It is
// deterministic and monotonically increasing in both inputs.
func Score(avgSpeed float64, laps int) float64 {
	return avgSpeed*weightSpeed + float64(laps)*weightLaps
}
