package domain

import "strings"

// UserGroup описывает группу пользователя.
type UserGroup string

const (
	UserGroupBasic   UserGroup = "basic"
	UserGroupPremium UserGroup = "premium"
	UserGroupAuthor  UserGroup = "author"
)

// GroupPlan описывает ограничения группы.
type GroupPlan struct {
	Group UserGroup
	Name  string
	// PostDailyLimit — число публикаций в сутки; 0 означает отсутствие лимита.
	PostDailyLimit int
}

var plans = map[UserGroup]GroupPlan{
	UserGroupBasic: {
		Group:          UserGroupBasic,
		Name:           "Basic",
		PostDailyLimit: 3,
	},
	UserGroupPremium: {
		Group:          UserGroupPremium,
		Name:           "Premium",
		PostDailyLimit: 5,
	},
	UserGroupAuthor: {
		Group:          UserGroupAuthor,
		Name:           "Author",
		PostDailyLimit: 0,
	},
}

// PlanForGroup возвращает план для группы.
func PlanForGroup(group UserGroup) GroupPlan {
	if plan, ok := plans[UserGroup(strings.ToLower(string(group)))]; ok {
		return plan
	}
	return plans[UserGroupBasic]
}

// PostLimitFor возвращает суточный лимит публикаций группы. 0 — без лимита.
func PostLimitFor(group UserGroup) int {
	return PlanForGroup(group).PostDailyLimit
}

// Plan возвращает план пользователя. Всегда вычисляется по текущей группе.
func (p Profile) Plan() GroupPlan {
	return PlanForGroup(p.Group)
}

// PostReservation описывает результат попытки зарезервировать публикацию.
type PostReservation struct {
	Allowed bool
	Plan    GroupPlan
	Used    int
}

// Remaining возвращает оставшееся число публикаций на день. -1 — лимита нет.
func (r PostReservation) Remaining() int {
	if r.Plan.PostDailyLimit <= 0 {
		return -1
	}
	remaining := r.Plan.PostDailyLimit - r.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}
