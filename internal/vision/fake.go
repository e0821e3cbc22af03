package vision

import (
	"context"

	"github.com/agui1era/Sentinex/internal/camera"
)

// FakeAnalyzer returns canned results for tests.
type FakeAnalyzer struct {
	Analysis *Analysis
	Err      error
	Calls    int
}

func (f *FakeAnalyzer) Analyze(ctx context.Context, frame *camera.Frame, systemPrompt string) (*Analysis, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Analysis, nil
}
