package whatsthat

import (
	"sort"
	"time"
)

// DateLayout is the calendar-date label shown on separators.
const DateLayout = "Mon Jan 02 2006"

// TimeLayout is the per-message time shown next to each message.
const TimeLayout = "15:04"

// TimelineItem is one row of a rendered thread: either a date separator or a
// message.
type TimelineItem struct {
	Separator bool
	Date      string

	Message Message
	Mine    bool
	// Author is the first name of the sender, empty for the current user's
	// own messages.
	Author string
	Time   string
}

// SortMessages returns a copy of msgs ordered by timestamp. Messages with equal
// timestamps keep their original order.
func SortMessages(msgs []Message) []Message {
	sorted := make([]Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return sorted
}

// IsMine reports whether m was written by userID.
func IsMine(m Message, userID ID) bool {
	return userID != "" && m.AuthorUserID().String() == userID.String()
}

// MessageTime converts a millisecond timestamp to a time in loc.
func MessageTime(m Message, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(m.Timestamp).In(loc)
}

// Timeline sorts msgs and inserts a separator before the first message of
// each calendar day in loc.
func Timeline(msgs []Message, me ID, loc *time.Location) []TimelineItem {
	sorted := SortMessages(msgs)
	items := make([]TimelineItem, 0, len(sorted)+1)

	var prev string
	for i, m := range sorted {
		t := MessageTime(m, loc)
		day := t.Format(DateLayout)
		if i == 0 || day != prev {
			items = append(items, TimelineItem{Separator: true, Date: day})
			prev = day
		}
		mine := IsMine(m, me)
		item := TimelineItem{Date: day, Message: m, Mine: mine, Time: t.Format(TimeLayout)}
		if !mine {
			item.Author = m.AuthorFirstName()
		}
		items = append(items, item)
	}
	return items
}

// CanRemoveMember reports whether the members panel offers removal of
// member. Everyone but the current user can be removed.
func CanRemoveMember(member Member, me ID) bool {
	return member.UserID.String() != me.String()
}
