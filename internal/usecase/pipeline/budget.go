package pipeline

import "docdigest/internal/domain/entity"

// Base token budgets per task type. The budget bounds how much text is shown
// to the model in one call; tighter profiles produce shorter, cheaper runs.
var baseBudgets = map[entity.TaskType]int{
	entity.TaskShortSummary:     1500,
	entity.TaskLongSummary:      3000,
	entity.TaskDetailedAnalysis: 4000,
	entity.TaskAcademicPaper:    6000,
}

const (
	// shortContentRunes is the length below which the budget is capped
	// tight: splitting a short document into many chunks wastes calls.
	shortContentRunes = 5000

	// mediumContentRunes is the length below which the base budget applies
	// unchanged. Longer content gets a relaxed budget up to budgetCeiling.
	mediumContentRunes = 15000

	// budgetCeiling is the hard upper bound on any recommended budget.
	budgetCeiling = 6000

	// tightCap is the budget cap applied to short content.
	tightCap = 1500
)

// RecommendedBudget returns the token budget for a document of the given
// length (in runes) under the given task profile. Chosen once per pipeline
// run and constant for the duration of the reduction.
func RecommendedBudget(task entity.TaskType, contentRunes int) int {
	base, ok := baseBudgets[task]
	if !ok {
		base = baseBudgets[entity.TaskLongSummary]
	}

	switch {
	case contentRunes < shortContentRunes:
		return min(base, tightCap)
	case contentRunes < mediumContentRunes:
		return base
	default:
		return min(base*3/2, budgetCeiling)
	}
}
