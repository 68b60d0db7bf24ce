package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/stretchr/testify/assert"

	bytes "github.com/ccakes/athenacli/internal/bytes"
	"github.com/ccakes/athenacli/internal/stub"
	"github.com/ccakes/athenacli/internal/testhelper"
)

// fakeFilter selects every entry of its input without user interaction.
type fakeFilter struct {
	selected []string
}

func (f *fakeFilter) SetInput(input string) {
	f.selected = strings.Split(input, "\n")
}

func (f *fakeFilter) Run(ctx context.Context) error { return nil }

func (f *fakeFilter) Len() int { return len(f.selected) }

func (f *fakeFilter) Each(fn func(item string) bool) {
	for _, item := range f.selected {
		if !fn(item) {
			return
		}
	}
}

func TestFetchQueryExecutions(t *testing.T) {
	base := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	client := stub.NewClient(
		&stub.Result{ID: "1", Query: "SHOW DATABASES", Submitted: base},
		&stub.Result{ID: "2", Query: "SHOW TABLES", Submitted: base.Add(2 * time.Hour)},
		&stub.Result{ID: "3", Query: "SELECT 1", Submitted: base.Add(1 * time.Hour)},
	)

	var out bytes.Buffer
	r := newTestRunner(client, &Config{}, &out)

	qxs, err := r.fetchQueryExecutions(context.Background())

	assert.NoError(t, err)
	assert.Len(t, qxs, 3)
	// Sorted by submission date in descending order
	ids := make([]string, len(qxs))
	for i, qx := range qxs {
		ids[i] = aws.StringValue(qx.QueryExecutionId)
	}
	assert.Equal(t, []string{"2", "3", "1"}, ids)
}

func TestShowHistory(t *testing.T) {
	client := stub.NewClient(&stub.Result{
		ID:        "TestShowHistory",
		Query:     "SHOW DATABASES",
		ExecTime:  123,
		Location:  "s3://samplebucket/",
		Submitted: time.Now().Add(-2 * time.Hour),
		ResultSet: athenaResultSet(nil, [][]string{
			{"cloudfront_logs"},
			{"elb_logs"},
			{"sampledb"},
		}),
	})

	var out bytes.Buffer
	r := newTestRunner(client, &Config{}, &out)
	r.f = &fakeFilter{}

	err := r.ShowHistory()

	assert.NoError(t, err)
	assert.Contains(t, out.String(), showDatabasesOutput)
}

func TestGenerateEntry(t *testing.T) {
	submitted := time.Now().Add(-2 * time.Hour)
	qx := &athena.QueryExecution{
		Query:      aws.String("SELECT date, time\nFROM cloudfront_logs"),
		Statistics: testhelper.CreateStats(1234, 56789),
		Status: &athena.QueryExecutionStatus{
			State:              aws.String(athena.QueryExecutionStateSucceeded),
			SubmissionDateTime: aws.Time(submitted),
		},
	}

	got := generateEntry(qx)

	expected := fmt.Sprintf("2 hours ago\tSELECT date, time FROM cloudfront_logs\t%s\t1.23 seconds\t56.79 KB",
		athena.QueryExecutionStateSucceeded)
	assert.Equal(t, expected, got)
}

func TestCalcMaxPages(t *testing.T) {
	tests := []struct {
		count    int
		expected float64
	}{
		{0, math.Inf(+1)},
		{1, 1},
		{49, 1},
		{50, 1},
		{51, 2},
		{100, 2},
		{101, 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, calcMaxPages(tt.count), "Count: %d", tt.count)
	}
}
