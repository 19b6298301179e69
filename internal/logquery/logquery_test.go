package logquery

import (
	"net/url"
	"testing"
	"time"

	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	cols, err := ParseSort("status, -messageDate,")
	require.NoError(t, err)
	expected := []SortColumn{{ColID: "status"}, {ColID: "messageDate", Desc: true}}
	if diff := cmp.Diff(expected, cols); diff != "" {
		t.Errorf("sort mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseSort("password")
	assert.ErrorIs(t, err, gwerrors.ErrValidation)
}

func TestEncodeIsOrdered(t *testing.T) {
	q := New()
	q, err := q.WithFilter("status", "pending")
	require.NoError(t, err)
	q, err = q.WithFilter("destination", "a@b.io")
	require.NoError(t, err)
	q, err = q.WithSort("-messageDate,id")
	require.NoError(t, err)
	q, err = q.WithPage(3)
	require.NoError(t, err)

	assert.Equal(t, "page=3&limit=5&status=pending&destination=a%40b.io&sort=-messageDate%2Cid", q.Encode())
	assert.Equal(t, "/logs?"+q.Encode(), q.Path())
	assert.Equal(t, "-messageDate,id", q.SortString())
}

func TestFilterResetsPage(t *testing.T) {
	q, err := New().WithPage(4)
	require.NoError(t, err)

	filtered, err := q.WithFilter("service", "sms")
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Page)
	assert.Equal(t, 4, q.Page, "the original query is not modified")

	cleared, err := filtered.WithFilter("service", " ")
	require.NoError(t, err)
	assert.Equal(t, 0, cleared.Filters.Len())

	_, err = q.WithFilter("password", "x")
	assert.ErrorIs(t, err, gwerrors.ErrValidation)
}

func TestPageSizes(t *testing.T) {
	q, err := New().WithPage(2)
	require.NoError(t, err)
	q, err = q.WithPageSize(75)
	require.NoError(t, err)
	assert.Equal(t, 75, q.PageSize)
	assert.Equal(t, 1, q.Page)

	_, err = q.WithPageSize(10)
	assert.ErrorIs(t, err, gwerrors.ErrValidation)
	_, err = q.WithPage(0)
	assert.Error(t, err)
}

func TestFromValues(t *testing.T) {
	values, err := url.ParseQuery("page=2&limit=5&service=email&unknown=1&sort=-id")
	require.NoError(t, err)

	q, err := FromValues(values)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 5, q.PageSize)
	service, found := q.Filters.Get("service")
	assert.True(t, found)
	assert.Equal(t, "email", service)
	assert.Equal(t, "-id", q.SortString())

	defaults, err := FromValues(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, "page=1&limit=5", defaults.Encode())

	_, err = FromValues(url.Values{"limit": []string{"7"}})
	assert.ErrorIs(t, err, gwerrors.ErrValidation)
	_, err = FromValues(url.Values{"page": []string{"x"}})
	assert.ErrorIs(t, err, gwerrors.ErrValidation)
}

func testMessages() []models.LogMessage {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	output := []models.LogMessage{}
	services := []models.Channel{models.EmailChannel, models.SMSChannel, models.SlackChannel}
	for i := 1; i <= 12; i++ {
		output = append(output, models.LogMessage{
			ID:          i,
			MessageID:   "msg-" + string(rune('a'+i)),
			Service:     services[i%3],
			Destination: "dest",
			Status:      models.StatusPending,
			Attempts:    i % 4,
			MessageDate: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return output
}

func TestApply(t *testing.T) {
	q, err := New().WithPageSize(5)
	require.NoError(t, err)

	items, pagination := q.Apply(testMessages())
	require.Len(t, items, 5)
	assert.Equal(t, 12, items[0].ID, "newest first without a sort")
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 5, TotalItems: 12, TotalPages: 3}, pagination)

	q, err = q.WithPage(3)
	require.NoError(t, err)
	items, _ = q.Apply(testMessages())
	assert.Len(t, items, 2)

	q, err = q.WithPage(9)
	require.NoError(t, err)
	items, _ = q.Apply(testMessages())
	assert.Empty(t, items)
}

func TestApplyFilterAndSort(t *testing.T) {
	q, err := New().WithFilter("service", "SMS")
	require.NoError(t, err)
	q, err = q.WithSort("attempts,-id")
	require.NoError(t, err)

	items, pagination := q.Apply(testMessages())

	assert.Equal(t, 4, pagination.TotalItems)
	ids := []int{}
	for _, item := range items {
		assert.Equal(t, models.SMSChannel, item.Service)
		ids = append(ids, item.ID)
	}
	// sms rows are ids 1, 4, 7, 10 with attempts 1, 0, 3, 2
	assert.Equal(t, []int{4, 1, 10, 7}, ids)
}
