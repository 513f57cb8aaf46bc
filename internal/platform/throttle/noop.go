package throttle

import (
	"context"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// Noop is the throttle strategy used when rate limiting is disabled.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Allow(ctx context.Context, judgeID domain.UserID, contestID domain.ContestID) error {
	return nil
}

var _ domain.Throttle = Noop{}
