package board

import "noticeboard/internal/domain/notice"

// Samples returns the notices a fresh board is seeded with.
// IDs are left empty so Seed assigns them.
func Samples() []notice.Notice {
	return []notice.Notice{
		{
			Category: notice.CategoryAnnouncement,
			Title:    "Welcome to the Digital Notice Board",
			Text:     "This is your central hub for announcements, events, and important updates.",
			Date:     "January 11, 2026",
			Pinned:   true,
		},
		{
			Category: notice.CategoryEvent,
			Title:    "Team Meeting - Q1 Planning",
			Text:     "Join us for our quarterly planning meeting on January 15th at 10:00 AM.",
			Date:     "January 10, 2026",
		},
		{
			Category: notice.CategoryImportant,
			Title:    "System Maintenance Scheduled",
			Text:     "The system will undergo maintenance on January 14th from 2:00 AM to 4:00 AM.",
			Date:     "January 9, 2026",
		},
		{
			Category: notice.CategoryReminder,
			Title:    "Deadline: Project Submissions",
			Text:     "All project submissions are due by January 18th at 5:00 PM.",
			Date:     "January 8, 2026",
		},
	}
}
