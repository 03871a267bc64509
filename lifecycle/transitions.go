package lifecycle

import "github.com/linesmerrill/dispute-case-api/models"

// supersedes lists, per stage, the stages whose sessions are retired when a case enters
// it. Escalating leaves the less formal stages behind; returning to mediation retires
// both formal stages.
var supersedes = map[models.Stage][]models.Stage{
	models.StageMediation:    {models.StageConciliation, models.StageArbitration},
	models.StageConciliation: {models.StageMediation},
	models.StageArbitration:  {models.StageMediation, models.StageConciliation},
}

// Supersedes reports whether entering next retires the sessions of prev
func Supersedes(next, prev models.Stage) bool {
	for _, s := range supersedes[next] {
		if s == prev {
			return true
		}
	}
	return false
}

// CanEnter reports whether a case in from may move to to. Any open status may enter any
// stage or any closing status; closed cases never move again.
func CanEnter(from, to models.CaseStatus) bool {
	if from.Terminal() || !to.Valid() || to == models.StatusPending {
		return false
	}
	return true
}

// panelAllowed reports whether a stage is heard by a panel
func panelAllowed(s models.Stage) bool {
	return s == models.StageConciliation || s == models.StageArbitration
}
