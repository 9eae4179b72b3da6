package dispatch

import "mailflare/internal/models"

type dueField int

const (
	dueExecuteAt dueField = iota
	dueExecute2At
)

type phaseAction int

const (
	actionBulkSend phaseAction = iota
	actionInitialTest
	actionTimingBatchA
	actionTimingBatchB
	actionWinnerFollowup
)

// transition is one row of the dispatch state machine: which jobs it applies
// to, which due timestamp gates it, the claim that fences out concurrent
// workers, and where the job lands on success.
type transition struct {
	jobType models.JobType
	abTypes []models.ABType
	due     dueField
	from    []models.JobStatus
	claim   models.JobStatus
	success models.JobStatus
	action  phaseAction
}

// transitionTable drives the whole dispatcher. Two-phase campaigns appear
// as two rows; the second row's source set includes the first row's success
// status so both phases can fire within a single sweep when both are due.
// Timing (3) is deliberately absent from the S row: a synchronously sent
// timing campaign has no winner phase left to run.
var transitionTable = []transition{
	{
		jobType: models.JobTypeSent,
		abTypes: []models.ABType{models.ABTypeNone, models.ABTypeSubject, models.ABTypeSender, models.ABTypeContent},
		due:     dueExecuteAt,
		from:    []models.JobStatus{models.JobStatusPending, models.JobStatusPartial},
		claim:   models.JobStatusRunning,
		success: models.JobStatusDone,
		action:  actionWinnerFollowup,
	},
	{
		jobType: models.JobTypeBatch,
		abTypes: []models.ABType{models.ABTypeNone},
		due:     dueExecuteAt,
		from:    []models.JobStatus{models.JobStatusPending},
		claim:   models.JobStatusRunning,
		success: models.JobStatusDone,
		action:  actionBulkSend,
	},
	{
		jobType: models.JobTypeBatch,
		abTypes: []models.ABType{models.ABTypeTiming},
		due:     dueExecuteAt,
		from:    []models.JobStatus{models.JobStatusPending},
		claim:   models.JobStatusRunningA,
		success: models.JobStatusPartial,
		action:  actionTimingBatchA,
	},
	{
		jobType: models.JobTypeBatch,
		abTypes: []models.ABType{models.ABTypeTiming},
		due:     dueExecute2At,
		from:    []models.JobStatus{models.JobStatusPending, models.JobStatusPartial},
		claim:   models.JobStatusRunningB,
		success: models.JobStatusDone,
		action:  actionTimingBatchB,
	},
	{
		jobType: models.JobTypeBatch,
		abTypes: []models.ABType{models.ABTypeSubject, models.ABTypeSender, models.ABTypeContent},
		due:     dueExecuteAt,
		from:    []models.JobStatus{models.JobStatusPending},
		claim:   models.JobStatusRunningTest,
		success: models.JobStatusPartial,
		action:  actionInitialTest,
	},
	{
		jobType: models.JobTypeBatch,
		abTypes: []models.ABType{models.ABTypeSubject, models.ABTypeSender, models.ABTypeContent},
		due:     dueExecute2At,
		from:    []models.JobStatus{models.JobStatusPending, models.JobStatusPartial},
		claim:   models.JobStatusRunning,
		success: models.JobStatusDone,
		action:  actionWinnerFollowup,
	},
}

func (t transition) matchesABType(ab models.ABType) bool {
	for _, candidate := range t.abTypes {
		if candidate == ab {
			return true
		}
	}
	return false
}
