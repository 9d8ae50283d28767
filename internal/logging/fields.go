package logging

const (
	// FieldComponent names the emitting package.
	FieldComponent = "component"
	// FieldRunID correlates every line of one catalog update.
	FieldRunID = "run_id"
	// FieldCategory is the category code a line refers to.
	FieldCategory = "category"
	// FieldStrategy is the day's ranking strategy.
	FieldStrategy = "strategy"
	// FieldRunDate is the ISO date the run ranks for.
	FieldRunDate = "run_date"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType tags decision log lines.
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
	// FieldMovieID is the upstream numeric id of the item a line refers to.
	FieldMovieID = "movie_id"
)
