package domain

import "testing"

func TestPlanForGroup(t *testing.T) {
	cases := []struct {
		group UserGroup
		limit int
	}{
		{UserGroupBasic, 3},
		{UserGroupPremium, 5},
		{UserGroupAuthor, 0},
		{UserGroup("PREMIUM"), 5},
		{UserGroup("unknown"), 3},
		{UserGroup(""), 3},
	}
	for _, c := range cases {
		if got := PostLimitFor(c.group); got != c.limit {
			t.Fatalf("группа %q: ожидали лимит %d, получили %d", c.group, c.limit, got)
		}
	}
}

func TestReservationRemaining(t *testing.T) {
	unlimited := PostReservation{Plan: PlanForGroup(UserGroupAuthor), Used: 10}
	if unlimited.Remaining() != -1 {
		t.Fatalf("у группы без лимита остаток не считается")
	}
	basic := PostReservation{Plan: PlanForGroup(UserGroupBasic), Used: 2}
	if basic.Remaining() != 1 {
		t.Fatalf("ожидали остаток 1, получили %d", basic.Remaining())
	}
	exhausted := PostReservation{Plan: PlanForGroup(UserGroupBasic), Used: 5}
	if exhausted.Remaining() != 0 {
		t.Fatalf("остаток не может быть отрицательным")
	}
}

func TestArticleNotified(t *testing.T) {
	var a Article
	if a.Notified() {
		t.Fatalf("новая статья считается неразосланной")
	}
}
