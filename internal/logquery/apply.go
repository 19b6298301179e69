package logquery

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gkmit/notify-console/internal/models"
)

func columnValue(msg models.LogMessage, column string) string {
	switch column {
	case "id":
		return strconv.Itoa(msg.ID)
	case "messageId":
		return msg.MessageID
	case "service":
		return string(msg.Service)
	case "destination":
		return msg.Destination
	case "status":
		return string(msg.Status)
	case "attempts":
		return strconv.Itoa(msg.Attempts)
	default:
		return ""
	}
}

func compare(a, b models.LogMessage, column string) int {
	switch column {
	case "id":
		return a.ID - b.ID
	case "attempts":
		return a.Attempts - b.Attempts
	case "messageDate":
		return a.MessageDate.Compare(b.MessageDate)
	default:
		return strings.Compare(columnValue(a, column), columnValue(b, column))
	}
}

// Matches reports whether the message passes every filter (case insensitive "contains")
func (q LogQuery) Matches(msg models.LogMessage) bool {
	if q.Filters == nil {
		return true
	}
	for pair := q.Filters.Oldest(); pair != nil; pair = pair.Next() {
		value := strings.ToLower(columnValue(msg, pair.Key))
		if !strings.Contains(value, strings.ToLower(pair.Value)) {
			return false
		}
	}
	return true
}

// Apply filters, sorts and pages the messages. Without a sort the newest messages come first.
func (q LogQuery) Apply(messages []models.LogMessage) ([]models.LogMessage, models.Pagination) {
	filtered := []models.LogMessage{}
	for _, msg := range messages {
		if q.Matches(msg) {
			filtered = append(filtered, msg)
		}
	}
	columns := q.Sort
	if len(columns) == 0 {
		columns = []SortColumn{{ColID: "id", Desc: true}}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		for _, col := range columns {
			res := compare(filtered[i], filtered[j], col.ColID)
			if res == 0 {
				continue
			}
			if col.Desc {
				return res > 0
			}
			return res < 0
		}
		return false
	})
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	pagination := models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(filtered),
		TotalPages: (len(filtered) + pageSize - 1) / pageSize,
	}
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return []models.LogMessage{}, pagination
	}
	end := min(start+pageSize, len(filtered))
	return filtered[start:end], pagination
}
