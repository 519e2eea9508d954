package logic

import (
	"sort"
	"strconv"
	"strings"

	"github.com/openmohaa/matchmaker/internal/models"
)

// Grouper partitions an eligible ticket set into internally compatible groups.
// Every group keeps the relative enqueue order of its members.
type Grouper interface {
	Group(tickets []models.TicketProjection) [][]models.TicketProjection
	Name() string
}

// NewGrouper picks the grouping policy for a queue: skill window when a skill
// range is configured, custom attributes when rules exist, FIFO otherwise.
func NewGrouper(rules *models.MatchingRules) Grouper {
	if rules == nil {
		return FIFOGrouper{}
	}
	if rules.SkillRange != nil {
		attr := rules.SkillAttribute
		if attr == "" {
			attr = models.SkillAttribute
		}
		return SkillWindowGrouper{Attribute: attr, Range: *rules.SkillRange}
	}
	if len(rules.CustomAttributes) > 0 {
		return AttributeGrouper{Rules: rules.CustomAttributes}
	}
	return FIFOGrouper{}
}

// FIFOGrouper treats the whole eligible set as one group.
type FIFOGrouper struct{}

func (FIFOGrouper) Name() string { return "fifo" }

func (FIFOGrouper) Group(tickets []models.TicketProjection) [][]models.TicketProjection {
	if len(tickets) == 0 {
		return nil
	}
	group := make([]models.TicketProjection, len(tickets))
	copy(group, tickets)
	return [][]models.TicketProjection{group}
}

// SkillWindowGrouper buckets tickets in a single left-to-right pass over
// ascending skill. A bucket is anchored on its first member's skill and
// accepts tickets within Range of that anchor. This is not globally optimal:
// a ticket is never moved to a neighbouring bucket it might fit better.
// Tickets without a numeric skill attribute are left out.
type SkillWindowGrouper struct {
	Attribute string
	Range     float64
}

func (g SkillWindowGrouper) Name() string { return "skill_window" }

type rankedTicket struct {
	pos    int
	skill  float64
	ticket models.TicketProjection
}

func (g SkillWindowGrouper) Group(tickets []models.TicketProjection) [][]models.TicketProjection {
	ranked := make([]rankedTicket, 0, len(tickets))
	for i, t := range tickets {
		skill, ok := t.Attributes.Float(g.Attribute)
		if !ok {
			continue
		}
		ranked = append(ranked, rankedTicket{pos: i, skill: skill, ticket: t})
	}
	if len(ranked) == 0 {
		return nil
	}

	// Stable so equal skills stay in enqueue order.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].skill < ranked[j].skill })

	var buckets [][]rankedTicket
	var current []rankedTicket
	var base float64
	for _, r := range ranked {
		if len(current) > 0 && r.skill-base > g.Range {
			buckets = append(buckets, current)
			current = nil
		}
		if len(current) == 0 {
			base = r.skill
		}
		current = append(current, r)
	}
	buckets = append(buckets, current)

	groups := make([][]models.TicketProjection, 0, len(buckets))
	for _, b := range buckets {
		sort.Slice(b, func(i, j int) bool { return b[i].pos < b[j].pos })
		group := make([]models.TicketProjection, len(b))
		for i, r := range b {
			group[i] = r.ticket
		}
		groups = append(groups, group)
	}
	return groups
}

// AttributeGrouper partitions tickets by a key built from every configured
// rule. Exact rules contribute the attribute's value. Range and difference
// rules only contribute the attribute name, so all tickets fall in one
// partition for that rule and are matched FIFO within it.
type AttributeGrouper struct {
	Rules []models.AttributeRule
}

func (g AttributeGrouper) Name() string { return "custom_attribute" }

func (g AttributeGrouper) Group(tickets []models.TicketProjection) [][]models.TicketProjection {
	var order []string
	partitions := make(map[string][]models.TicketProjection)
	for _, t := range tickets {
		key := g.key(t)
		if _, ok := partitions[key]; !ok {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], t)
	}

	groups := make([][]models.TicketProjection, 0, len(order))
	for _, key := range order {
		groups = append(groups, partitions[key])
	}
	return groups
}

func (g AttributeGrouper) key(t models.TicketProjection) string {
	parts := make([]string, 0, len(g.Rules))
	for _, rule := range g.Rules {
		switch rule.MatchType {
		case models.MatchExact:
			v, ok := t.Attributes.String(rule.AttributeName)
			if !ok {
				parts = append(parts, rule.AttributeName+"!")
				continue
			}
			parts = append(parts, rule.AttributeName+"="+strconv.Quote(v))
		default:
			parts = append(parts, rule.AttributeName+"=*")
		}
	}
	return strings.Join(parts, "|")
}
