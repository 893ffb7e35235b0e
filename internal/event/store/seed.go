package store

import (
	"context"
	"time"

	"civreg/internal/event/models"
	"civreg/pkg/domain"
)

// SeedDemoRecords creates a small set of records for local development so a
// fresh server has something to browse. Errors are ignored on purpose: a
// repeat seed against an existing store just collides on registration IDs.
func SeedDemoRecords(events EventStore, owner domain.UserID) []*models.Event {
	ctx := context.Background()
	now := time.Now()

	approved, err := models.NewEvent(models.EventBirth, "1001", models.Data{
		"childName":          "Abel Kebede",
		"fatherName":         "Kebede Alemu",
		"grandfatherName":    "Alemu Tesfaye",
		"sex":                "male",
		"birthDate":          "2015-04-01",
		"birthPlace":         "Adama",
		"motherName":         "Sara Bekele",
		"motherFatherName":   "Bekele Girma",
		"registrationRegion": "Oromia",
		"registrationZone":   "East Shewa",
		"registrationWoreda": "Adama",
		"registrationKebele": "05",
	}, domain.RoleHospital, owner, now.Add(-48*time.Hour))
	if err != nil {
		return nil
	}
	approved.ApplySubmission(now.Add(-24 * time.Hour))
	approved.ApplyApproval(domain.NewUserID(), now.Add(-23*time.Hour))
	_ = events.Create(ctx, approved)

	draft, err := models.NewEvent(models.EventMarriage, "1002", models.Data{
		"husbandName":       "Dawit Haile",
		"husbandFatherName": "Haile Mariam",
		"wifeName":          "Hanna Tadesse",
		"wifeFatherName":    "Tadesse Lemma",
		"marriageDate":      "2016-01-15",
		"marriagePlace":     "Bahir Dar",
	}, domain.RoleChurch, owner, now)
	if err != nil {
		return []*models.Event{approved}
	}
	_ = events.Create(ctx, draft)

	return []*models.Event{approved, draft}
}
