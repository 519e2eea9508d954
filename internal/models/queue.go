package models

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SkillAttribute is the ticket attribute read by skill-window grouping
// unless the queue names another one.
const SkillAttribute = "skillRating"

// AllocationStrategy selects how a game server is picked for a match.
type AllocationStrategy string

const (
	AllocationClosest  AllocationStrategy = "closest"
	AllocationBalanced AllocationStrategy = "balanced"
	AllocationCustom   AllocationStrategy = "custom"
)

// MatchType is how a custom attribute rule compares tickets.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchRange      MatchType = "range"
	MatchDifference MatchType = "difference"
)

// QueueConfig is a per-title queue definition, read by the engine at every poll.
type QueueConfig struct {
	TitleID                  string             `json:"titleId" validate:"required"`
	QueueName                string             `json:"queueName" validate:"required"`
	DisplayName              string             `json:"displayName"`
	MinPlayers               int                `json:"minPlayers" validate:"gte=1"`
	MaxPlayers               int                `json:"maxPlayers" validate:"gtefield=MinPlayers"`
	TeamConfiguration        *TeamConfiguration `json:"teamConfiguration,omitempty" validate:"omitempty"`
	MatchingRules            *MatchingRules     `json:"matchingRules,omitempty" validate:"omitempty"`
	ServerAllocationStrategy AllocationStrategy `json:"serverAllocationStrategy" validate:"omitempty,oneof=closest balanced custom"`
	TimeoutSeconds           int                `json:"timeoutSeconds" validate:"gte=0"`
	Enabled                  bool               `json:"enabled"`

	// LoadErr is set when the stored definition could not be decoded.
	LoadErr error `json:"-" validate:"-"`
}

// Key identifies the queue's waiting-index entry set.
func (q *QueueConfig) Key() string {
	return q.TitleID + "/" + q.QueueName
}

// Strategy returns the configured allocation strategy, defaulting to closest.
func (q *QueueConfig) Strategy() AllocationStrategy {
	if q.ServerAllocationStrategy == "" {
		return AllocationClosest
	}
	return q.ServerAllocationStrategy
}

type TeamConfiguration struct {
	Teams []TeamDefinition `json:"teams" validate:"dive"`
}

type TeamDefinition struct {
	TeamID     string `json:"teamId" validate:"required"`
	MinPlayers int    `json:"minPlayers" validate:"gte=0"`
	MaxPlayers int    `json:"maxPlayers" validate:"gtefield=MinPlayers"`
}

// MatchingRules selects the grouping policy. A skill range takes priority
// over custom attribute rules.
type MatchingRules struct {
	SkillRange       *float64        `json:"skillRange,omitempty" validate:"omitempty,gte=0"`
	SkillAttribute   string          `json:"skillAttribute,omitempty"`
	CustomAttributes []AttributeRule `json:"customAttributes,omitempty" validate:"dive"`
}

type AttributeRule struct {
	AttributeName string    `json:"attributeName" validate:"required"`
	MatchType     MatchType `json:"matchType" validate:"oneof=exact range difference"`
	MaxDifference *float64  `json:"maxDifference,omitempty" validate:"omitempty,gte=0"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks player bounds, team layout and matching rules.
func (q *QueueConfig) Validate() error {
	if q.LoadErr != nil {
		return q.LoadErr
	}
	if err := getValidator().Struct(q); err != nil {
		return fmt.Errorf("queue %s: invalid configuration: %w", q.Key(), err)
	}
	if q.TeamConfiguration != nil && len(q.TeamConfiguration.Teams) > 0 {
		var teamMax int
		seen := make(map[string]bool, len(q.TeamConfiguration.Teams))
		for _, t := range q.TeamConfiguration.Teams {
			if seen[t.TeamID] {
				return fmt.Errorf("queue %s: duplicate team %q", q.Key(), t.TeamID)
			}
			seen[t.TeamID] = true
			teamMax += t.MaxPlayers
		}
		if teamMax > 0 && teamMax < q.MinPlayers {
			return fmt.Errorf("queue %s: teams hold at most %d players, below minPlayers %d", q.Key(), teamMax, q.MinPlayers)
		}
	}
	return nil
}
