package evaluation

import (
	"fmt"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

func CounterKeyContestTotal(id domain.ContestID) string {
	return fmt.Sprintf("contest:%s:total", id)
}

func CounterKeySample(contestID domain.ContestID, sampleID domain.SampleID) string {
	return fmt.Sprintf("contest:%s:sample:%s", contestID, sampleID)
}
