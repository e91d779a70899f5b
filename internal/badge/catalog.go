package badge

import "github.com/mhollis/chorequest/internal/model"

// Special badge conditions. Time-of-day conditions inspect actual completion
// timestamps in the household timezone.
const (
	CondMorningTasks = "morning-tasks"
	CondNightTasks   = "night-tasks"
	CondPerfectWeek  = "perfect-week"
)

const (
	morningCutoffHour = 9  // completions strictly before 09:00 count as morning
	nightStartHour    = 20 // completions at or after 20:00 count as night
	morningGoal       = 5
	nightGoal         = 5
	perfectWeekDays   = 7
)

// Catalog is the static badge definition set. Earned records are persisted
// per profile; the definitions themselves live here.
var Catalog = []model.Badge{
	{Code: "first-step", Name: "First Step", Description: "Complete your first task", Tier: "bronze", Requirement: model.BadgeReqTasksCompleted, Threshold: 1},
	{Code: "task-master", Name: "Task Master", Description: "Complete 10 tasks", Tier: "silver", Requirement: model.BadgeReqTasksCompleted, Threshold: 10},
	{Code: "super-achiever", Name: "Super Achiever", Description: "Complete 50 tasks", Tier: "gold", Requirement: model.BadgeReqTasksCompleted, Threshold: 50},

	{Code: "on-a-roll", Name: "On a Roll", Description: "Keep a 3-day streak", Tier: "bronze", Requirement: model.BadgeReqStreakDays, Threshold: 3},
	{Code: "week-warrior", Name: "Week Warrior", Description: "Keep a 7-day streak", Tier: "silver", Requirement: model.BadgeReqStreakDays, Threshold: 7},
	{Code: "unstoppable", Name: "Unstoppable", Description: "Keep a 30-day streak", Tier: "gold", Requirement: model.BadgeReqStreakDays, Threshold: 30},

	{Code: "pocket-money", Name: "Pocket Money", Description: "Earn 100 points", Tier: "bronze", Requirement: model.BadgeReqPointsEarned, Threshold: 100},
	{Code: "point-collector", Name: "Point Collector", Description: "Earn 500 points", Tier: "silver", Requirement: model.BadgeReqPointsEarned, Threshold: 500},
	{Code: "point-tycoon", Name: "Point Tycoon", Description: "Earn 2000 points", Tier: "gold", Requirement: model.BadgeReqPointsEarned, Threshold: 2000},

	{Code: "early-bird", Name: "Early Bird", Description: "Finish 5 tasks before 9am", Tier: "silver", Requirement: model.BadgeReqSpecial, Condition: CondMorningTasks},
	{Code: "night-owl", Name: "Night Owl", Description: "Finish 5 tasks after 8pm", Tier: "silver", Requirement: model.BadgeReqSpecial, Condition: CondNightTasks},
	{Code: "perfect-week", Name: "Perfect Week", Description: "Stay active 7 days in a row", Tier: "gold", Requirement: model.BadgeReqSpecial, Condition: CondPerfectWeek},
}

// Lookup returns the catalog entry for a code, or nil.
func Lookup(code string) *model.Badge {
	for i := range Catalog {
		if Catalog[i].Code == code {
			return &Catalog[i]
		}
	}
	return nil
}
