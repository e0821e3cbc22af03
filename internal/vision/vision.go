package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agui1era/Sentinex/internal/camera"
)

// Analysis is the structured risk assessment for one frame.
type Analysis struct {
	Description string
	// Score is the assessed severity in [0.0, 1.0].
	Score float64
	// Human is the explicit presence flag when the model returned one;
	// nil means the field was absent.
	Human *bool
}

// presenceKeywords flags person mentions in the description when the model
// did not return an explicit boolean. English and Spanish, matching the
// prompts deployments actually run with.
var presenceKeywords = []string{"human", "humano", "persona", "person", "people", "hombre", "mujer"}

// PresenceDetected reports whether a human presence signal is derivable
// from the analysis: the explicit flag wins, otherwise the description is
// scanned for person keywords.
func (a *Analysis) PresenceDetected() bool {
	if a.Human != nil {
		return *a.Human
	}
	lower := strings.ToLower(a.Description)
	for _, k := range presenceKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Analyzer sends one frame plus a system prompt to the vision inference
// endpoint and returns a parsed structured result.
type Analyzer interface {
	Analyze(ctx context.Context, frame *camera.Frame, systemPrompt string) (*Analysis, error)
}

// ParseError reports a malformed or out-of-range structured result. It is
// distinct from transport failures so callers can tell "endpoint broken"
// from "endpoint unreachable".
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse analysis: " + e.Reason
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// analysisPayload accepts the documented field-name variants. The canonical
// schema is description/score/human; evaluation, risk and human_detected
// are aliases some deployments return.
type analysisPayload struct {
	Description   *string  `json:"description"`
	Evaluation    *string  `json:"evaluation"`
	Score         *float64 `json:"score"`
	Risk          *float64 `json:"risk"`
	Human         *bool    `json:"human"`
	HumanDetected *bool    `json:"human_detected"`
}

// ParseAnalysis decodes the model's message content into an Analysis.
// A missing or out-of-range score is a parse failure, never a zero score.
func ParseAnalysis(content string) (*Analysis, error) {
	raw := stripCodeFence(strings.TrimSpace(content))
	if raw == "" {
		return nil, &ParseError{Reason: "empty content"}
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("content is not JSON: %v", err)}
	}

	score := payload.Score
	if score == nil {
		score = payload.Risk
	}
	if score == nil {
		return nil, &ParseError{Reason: "missing score"}
	}
	if *score < 0 || *score > 1 {
		return nil, &ParseError{Reason: fmt.Sprintf("score %v out of range [0,1]", *score)}
	}

	desc := payload.Description
	if desc == nil {
		desc = payload.Evaluation
	}
	if desc == nil {
		return nil, &ParseError{Reason: "missing description"}
	}

	human := payload.Human
	if human == nil {
		human = payload.HumanDetected
	}

	return &Analysis{
		Description: *desc,
		Score:       *score,
		Human:       human,
	}, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block, which vision
// models wrap their output in often enough to matter.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
