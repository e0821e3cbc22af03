package alert

import (
	"testing"

	"github.com/agui1era/Sentinex/internal/config"
	"github.com/agui1era/Sentinex/internal/vision"
)

func testSettings() config.Settings {
	return config.Settings{
		Name:             "ENTRANCE",
		ScoreThreshold:   0.8,
		PresenceMinScore: 0.2,
	}
}

func TestEvaluateRiskAtThreshold(t *testing.T) {
	e := NewEvaluator()

	intents := e.Evaluate(&vision.Analysis{Description: "forced door", Score: 0.85}, testSettings(), nil)
	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}
	if intents[0].Kind != KindRisk {
		t.Fatalf("expected risk intent, got %s", intents[0].Kind)
	}
	if intents[0].Camera != "ENTRANCE" || intents[0].Score != 0.85 {
		t.Fatalf("unexpected intent %+v", intents[0])
	}

	intents = e.Evaluate(&vision.Analysis{Description: "forced door", Score: 0.79}, testSettings(), nil)
	if len(intents) != 0 {
		t.Fatalf("score below threshold must not trigger, got %d intents", len(intents))
	}
}

func TestEvaluatePresenceBelowRiskThreshold(t *testing.T) {
	e := NewEvaluator()
	yes := true

	intents := e.Evaluate(&vision.Analysis{Description: "someone walks by", Score: 0.25, Human: &yes}, testSettings(), nil)
	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}
	if intents[0].Kind != KindPresence {
		t.Fatalf("expected presence intent, got %s", intents[0].Kind)
	}
}

func TestEvaluatePresenceBelowMinScore(t *testing.T) {
	e := NewEvaluator()
	yes := true

	intents := e.Evaluate(&vision.Analysis{Description: "someone far away", Score: 0.1, Human: &yes}, testSettings(), nil)
	if len(intents) != 0 {
		t.Fatalf("presence below min score must not trigger, got %d intents", len(intents))
	}
}

func TestEvaluateRiskAndPresenceTogether(t *testing.T) {
	e := NewEvaluator()
	yes := true
	photo := []byte{0xff, 0xd8}

	intents := e.Evaluate(&vision.Analysis{Description: "intruder climbing fence", Score: 0.95, Human: &yes}, testSettings(), photo)
	if len(intents) != 2 {
		t.Fatalf("expected risk + presence, got %d intents", len(intents))
	}
	if intents[0].Kind != KindRisk || intents[1].Kind != KindPresence {
		t.Fatalf("unexpected kinds %s, %s", intents[0].Kind, intents[1].Kind)
	}
	for _, in := range intents {
		if len(in.Photo) == 0 {
			t.Fatalf("intent %s missing photo", in.Kind)
		}
	}
}

func TestEvaluateNilAnalysis(t *testing.T) {
	e := NewEvaluator()
	if intents := e.Evaluate(nil, testSettings(), nil); intents != nil {
		t.Fatalf("nil analysis must produce no intents")
	}
}
