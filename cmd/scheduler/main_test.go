package main

import (
	"testing"
	"time"
)

func TestLastSlot(t *testing.T) {
	loc := time.UTC
	// Среда 4 марта 2026, расписание: понедельник 08:00.
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, loc)
	slot := lastSlot(now, time.Monday, 8, 0)
	want := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	if !slot.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, slot)
	}

	// Понедельник до 08:00 — слот прошлой недели.
	now = time.Date(2026, 3, 2, 7, 59, 0, 0, loc)
	slot = lastSlot(now, time.Monday, 8, 0)
	want = time.Date(2026, 2, 23, 8, 0, 0, 0, loc)
	if !slot.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, slot)
	}

	// Ровно в момент расписания слот текущий.
	now = time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	slot = lastSlot(now, time.Monday, 8, 0)
	want = now
	if !slot.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, slot)
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("08:30")
	if err != nil || hour != 8 || minute != 30 {
		t.Fatalf("ожидали 8:30, получили %d:%d, %v", hour, minute, err)
	}
	if _, _, err := parseClock("25:00"); err == nil {
		t.Fatalf("ожидали ошибку для часа вне диапазона")
	}
	if _, _, err := parseClock("abc"); err == nil {
		t.Fatalf("ожидали ошибку разбора")
	}
}
