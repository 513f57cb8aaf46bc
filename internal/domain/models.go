package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict signals a compare-and-set write lost against a concurrent one.
	ErrConflict = errors.New("concurrent modification")
)

type (
	ContestID    string
	SampleID     string
	EvaluationID string
	UserID       string
)

// SampleCategory identifies which scoring scheme applies to a sample.
type SampleCategory string

const (
	CategoryBean      SampleCategory = "bean"
	CategoryLiquor    SampleCategory = "liquor"
	CategoryChocolate SampleCategory = "chocolate"
)

// SampleStatus is the sample workflow state. Transitions only move forward,
// except "disqualified" which is terminal and reachable from "received" or
// "physical_evaluation".
type SampleStatus string

const (
	StatusSubmitted          SampleStatus = "submitted"
	StatusReceived           SampleStatus = "received"
	StatusPhysicalEvaluation SampleStatus = "physical_evaluation"
	StatusApproved           SampleStatus = "approved"
	StatusDisqualified       SampleStatus = "disqualified"
	StatusEvaluated          SampleStatus = "evaluated"
)

var statusOrder = map[SampleStatus]int{
	StatusSubmitted:          0,
	StatusReceived:           1,
	StatusPhysicalEvaluation: 2,
	StatusApproved:           3,
	StatusEvaluated:          4,
}

// CanTransition reports whether a sample may move to the given status.
func (s SampleStatus) CanTransition(to SampleStatus) bool {
	if s == StatusDisqualified {
		return false
	}
	if to == StatusDisqualified {
		return s == StatusReceived || s == StatusPhysicalEvaluation
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	next, ok := statusOrder[to]
	if !ok {
		return false
	}
	return next > from
}

// EvaluationStage distinguishes the sensory round from the final
// chocolate-tasting round. Uniqueness per (sample, judge) holds within a stage.
type EvaluationStage string

const (
	StageSensory EvaluationStage = "sensory"
	StageFinal   EvaluationStage = "final"
)

type Verdict string

const (
	VerdictApproved     Verdict = "Approved"
	VerdictDisqualified Verdict = "Disqualified"
)

type GlobalEvaluation string

const (
	PhysicalPassed       GlobalEvaluation = "passed"
	PhysicalDisqualified GlobalEvaluation = "disqualified"
)

type Contest struct {
	ID          ContestID `gorm:"column:id;type:char(26);primaryKey"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Description string    `gorm:"column:description;type:text"`
	DirectorID  UserID    `gorm:"column:director_id;type:char(26);not null;index"`
	StartDate   time.Time `gorm:"column:start_date;not null"`
	EndDate     time.Time `gorm:"column:end_date;not null"`
	Samples     []Sample  `gorm:"foreignKey:ContestID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type Sample struct {
	ID           SampleID       `gorm:"column:id;type:char(26);primaryKey"`
	ContestID    ContestID      `gorm:"column:contest_id;type:char(26);not null;index"`
	OwnerID      UserID         `gorm:"column:owner_id;type:char(26);not null;index"`
	TrackingCode string         `gorm:"column:tracking_code;type:text;not null;uniqueIndex"`
	Category     SampleCategory `gorm:"column:category;type:text;not null"`
	Status       SampleStatus   `gorm:"column:status;type:text;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PhysicalEvaluation holds the director's bench measurements for one sample
// plus the derived pass/disqualify outcome. At most one row per sample.
type PhysicalEvaluation struct {
	ID         string    `gorm:"column:id;type:char(26);primaryKey"`
	SampleID   SampleID  `gorm:"column:sample_id;type:char(26);not null;uniqueIndex"`
	DirectorID UserID    `gorm:"column:director_id;type:char(26);not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Humidity              float64 `gorm:"column:humidity"`
	BrokenGrains          float64 `gorm:"column:broken_grains"`
	FlatGrains            float64 `gorm:"column:flat_grains"`
	AffectedGrainsInsects float64 `gorm:"column:affected_grains_insects"`
	PurpleBeans           float64 `gorm:"column:purple_beans"`
	SlatyBeans            float64 `gorm:"column:slaty_beans"`
	InternalMoldyBeans    float64 `gorm:"column:internal_moldy_beans"`
	OverFermentedBeans    float64 `gorm:"column:over_fermented_beans"`
	WellFermentedBeans    float64 `gorm:"column:well_fermented_beans"`
	LightlyFermentedBeans float64 `gorm:"column:lightly_fermented_beans"`
	HasUndesirableAromas  bool    `gorm:"column:has_undesirable_aromas"`
	UndesirableAromas     string  `gorm:"column:undesirable_aromas;type:text"`
	ViolatedGrains        bool    `gorm:"column:violated_grains"`

	GlobalEvaluation        GlobalEvaluation `gorm:"column:global_evaluation;type:text;not null"`
	DisqualificationReasons string           `gorm:"column:disqualification_reasons;type:text"`
	Warnings                string           `gorm:"column:warnings;type:text"`
}

// Evaluation is one judge's verdict on one sample within a stage. ContestID is
// denormalized so ranking recomputes read a single table.
type Evaluation struct {
	ID             EvaluationID    `gorm:"column:id;type:char(26);primaryKey"`
	SampleID       SampleID        `gorm:"column:sample_id;type:char(26);not null;uniqueIndex:idx_eval_sample_judge_stage,priority:1;index"`
	ContestID      ContestID       `gorm:"column:contest_id;type:char(26);not null;index"`
	JudgeID        UserID          `gorm:"column:judge_id;type:char(26);not null;uniqueIndex:idx_eval_sample_judge_stage,priority:2"`
	Stage          EvaluationStage `gorm:"column:stage;type:text;not null;uniqueIndex:idx_eval_sample_judge_stage,priority:3"`
	Category       SampleCategory  `gorm:"column:category;type:text;not null"`
	Attributes     string          `gorm:"column:attributes;type:text"`
	OverallQuality float64         `gorm:"column:overall_quality;not null"`
	Verdict        Verdict         `gorm:"column:verdict;type:text;not null"`
	SubmittedAt    time.Time       `gorm:"column:submitted_at;not null;index"`
}

// TopResult is one leaderboard row. Fully derived state: rebuilt wholesale on
// every recompute, never edited in place. Rank is dense and unique within its
// contest partition.
type TopResult struct {
	ID              string    `gorm:"column:id;type:char(26);primaryKey"`
	ContestID       ContestID `gorm:"column:contest_id;type:char(26);not null;index"`
	SampleID        SampleID  `gorm:"column:sample_id;type:char(26);not null;uniqueIndex"`
	Score           float64   `gorm:"column:score;not null"`
	OriginalScore   float64   `gorm:"column:original_score;not null"`
	EvaluationCount int       `gorm:"column:evaluation_count;not null"`
	OutlierCount    int       `gorm:"column:outlier_count;not null"`
	LastEvaluatedAt time.Time `gorm:"column:last_evaluated_at;not null"`
	Rank            int       `gorm:"column:rank;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// SampleScore is one approved evaluation's contribution to a sample's
// aggregate, as read back during ranking recomputes.
type SampleScore struct {
	EvaluationID EvaluationID
	SampleID     SampleID
	ContestID    ContestID
	Score        float64
	SubmittedAt  time.Time
}

func (Contest) TableName() string { return "contests" }

func (Sample) TableName() string { return "samples" }

func (PhysicalEvaluation) TableName() string { return "physical_evaluations" }

func (Evaluation) TableName() string { return "evaluations" }

func (TopResult) TableName() string { return "top_results" }
