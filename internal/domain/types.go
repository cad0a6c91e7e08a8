// Package domain defines the shared record types and errors for the STRIPS engine.
package domain

// Direction selects the search space a problem is planned in.
type Direction string

const (
	DirectionForward    Direction = "forward"
	DirectionRegression Direction = "regression"
)

// Strategy selects the search algorithm.
type Strategy string

const (
	StrategyMPP            Strategy = "mpp"
	StrategyBranchAndBound Strategy = "bnb"
)

// RunStatus is the terminal outcome of a planning run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunFound       RunStatus = "found"
	RunNoSolution  RunStatus = "no_solution"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionForward, DirectionRegression:
		return Direction(s), nil
	case "":
		return DirectionForward, nil
	}
	return "", ErrUnknownDirection.Detail("%q", s)
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMPP, StrategyBranchAndBound:
		return Strategy(s), nil
	case "":
		return StrategyMPP, nil
	}
	return "", ErrUnknownStrategy.Detail("%q", s)
}

// RunRecord is the persisted summary of one search.
type RunRecord struct {
	RunID         string    `json:"run_id"`
	ProblemName   string    `json:"problem_name"`
	Direction     Direction `json:"direction"`
	Strategy      Strategy  `json:"strategy"`
	Heuristic     string    `json:"heuristic"`
	Bound         float64   `json:"bound"`
	Status        RunStatus `json:"status"`
	Cost          float64   `json:"cost"`
	Steps         int       `json:"steps"`
	Expanded      int       `json:"expanded"`
	Pruned        int       `json:"pruned"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	StartedAtUnix int64     `json:"started_at_unix"`
	DurationMS    int64     `json:"duration_ms"`
}

// PlanStep is one persisted action of a found plan, in execution order.
type PlanStep struct {
	RunID  string  `json:"run_id"`
	SeqNo  int     `json:"seq_no"`
	Action string  `json:"action"`
	Cost   float64 `json:"cost"`
}

// Run event types.
const (
	EventRunStarted  = "run_started"
	EventImproved    = "improved"
	EventPlanFound   = "plan_found"
	EventRunFinished = "run_finished"
)

// RunEvent is one entry of a run's progress log. PayloadJSON carries the
// event-specific fields.
type RunEvent struct {
	ID          int64  `json:"id"`
	RunID       string `json:"run_id"`
	SeqNo       int64  `json:"seq_no"`
	EventType   string `json:"event_type"`
	PayloadJSON string `json:"payload_json"`
	CreatedAt   int64  `json:"created_at"`
}
