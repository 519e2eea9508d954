package logic

import (
	"github.com/openmohaa/matchmaker/internal/models"
)

// AssignTeams builds the match roster for the selected tickets. With a team
// layout, teams are assigned round-robin by position in the selection
// (index mod team count); otherwise every player joins the default team.
func AssignTeams(selected []models.TicketProjection, teams *models.TeamConfiguration) []models.MatchPlayer {
	players := make([]models.MatchPlayer, len(selected))
	for i, t := range selected {
		teamID := models.DefaultTeamID
		if teams != nil && len(teams.Teams) > 0 {
			teamID = teams.Teams[i%len(teams.Teams)].TeamID
		}
		players[i] = models.MatchPlayer{
			PlayerID:   t.PlayerID,
			TicketID:   t.TicketID,
			TeamID:     teamID,
			Attributes: t.Attributes,
			EnqueuedAt: t.CreatedAt,
		}
	}
	return players
}

// SelectForMatch returns the oldest tickets of a group up to capacity and the
// remainder. The group must already be in enqueue order.
func SelectForMatch(group []models.TicketProjection, maxPlayers int) (selected, rest []models.TicketProjection) {
	if maxPlayers <= 0 || len(group) <= maxPlayers {
		return group, nil
	}
	return group[:maxPlayers], group[maxPlayers:]
}
