package publish

import (
	"context"

	"github.com/shiftpulse/backend/internal/utils"
)

// MockPublisher acknowledges summaries locally with deterministic fake
// latency; used when no dashboard backend is configured.
type MockPublisher struct {
	Version string
}

func (m MockPublisher) PublishDay(_ context.Context, summary DaySummary) (int64, error) {
	h := utils.HashStringToUint64(summary.Restaurant + "|" + summary.Date)
	return int64(h % 20), nil
}
