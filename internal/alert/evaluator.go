package alert

import (
	"time"

	"github.com/agui1era/Sentinex/internal/config"
	"github.com/agui1era/Sentinex/internal/vision"
)

// Evaluator interprets an analysis against a camera's thresholds and
// produces zero, one or two alert intents. It never fails on a well-formed
// analysis.
type Evaluator struct {
	now func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// Evaluate applies the camera's thresholds:
//   - a risk intent when score >= ScoreThreshold
//   - a presence intent when a presence signal is derivable and
//     score >= PresenceMinScore (deliberately a lower bar)
//
// One cycle can trigger both.
func (e *Evaluator) Evaluate(a *vision.Analysis, cam config.Settings, photo []byte) []Intent {
	if a == nil {
		return nil
	}

	now := e.now()
	var intents []Intent

	if a.Score >= cam.ScoreThreshold {
		intents = append(intents, Intent{
			Camera:      cam.Name,
			Kind:        KindRisk,
			Score:       a.Score,
			Description: a.Description,
			At:          now,
			Photo:       photo,
		})
	}

	if a.PresenceDetected() && a.Score >= cam.PresenceMinScore {
		intents = append(intents, Intent{
			Camera:      cam.Name,
			Kind:        KindPresence,
			Score:       a.Score,
			Description: a.Description,
			At:          now,
			Photo:       photo,
		})
	}

	return intents
}
