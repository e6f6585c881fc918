package entity

// SpotState состояние конвейера создания точки наблюдения
type SpotState string

const (
	StateReceived        SpotState = "RECEIVED"
	StateValidated       SpotState = "VALIDATED"
	StateQualityAccepted SpotState = "QUALITY_ACCEPTED"
	StateQualityRejected SpotState = "QUALITY_REJECTED"
	StateInferring       SpotState = "INFERRING"
	StateNormalized      SpotState = "NORMALIZED"
	StatePersisted       SpotState = "PERSISTED"
	StateResponded       SpotState = "RESPONDED"

	StateGeofenceRejected  SpotState = "GEOFENCE_REJECTED"
	StateAnalysisFailed    SpotState = "ANALYSIS_FAILED"
	StatePersistenceFailed SpotState = "PERSISTENCE_FAILED"
)

var spotTransitions = map[SpotState][]SpotState{
	StateReceived:        {StateValidated, StateGeofenceRejected},
	StateValidated:       {StateQualityAccepted, StateQualityRejected},
	StateQualityAccepted: {StateInferring, StateAnalysisFailed},
	StateQualityRejected: {StatePersisted, StatePersistenceFailed},
	StateInferring:       {StateNormalized, StateAnalysisFailed},
	StateNormalized:      {StatePersisted, StatePersistenceFailed},
	StatePersisted:       {StateResponded},
}

// CanTransition проверяет допустимость перехода
func (s SpotState) CanTransition(next SpotState) bool {
	for _, n := range spotTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, завершён ли конвейер
func (s SpotState) IsTerminal() bool {
	switch s {
	case StateResponded, StateGeofenceRejected, StateAnalysisFailed, StatePersistenceFailed:
		return true
	}
	return false
}
