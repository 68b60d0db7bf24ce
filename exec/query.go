package exec

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/aws/aws-sdk-go/service/athena/athenaiface"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// DefaultWaitInterval is a default value of wait interval between
	// GetQueryExecution API calls.
	DefaultWaitInterval = 500 * time.Millisecond

	// The maximum number of results (rows) to return in a GetQueryResults API request.
	// See https://docs.aws.amazon.com/athena/latest/APIReference/API_GetQueryResults.html#API_GetQueryResults_RequestSyntax
	maxResults = 1000

	// The maximum number of consecutive GetQueryExecution API errors tolerated
	// while polling before giving up.
	maxPollAttempts = 5

	// How long to wait before retrying after a transient polling error.
	pollRetryInterval = 250 * time.Millisecond

	queryExecutionCanceled = "query execution request has been canceled"
)

// CanceledError represents an error that a query execution has been canceled.
type CanceledError struct {
	Query string
	ID    string
}

func (e *CanceledError) Error() string {
	if e.ID == "" {
		return queryExecutionCanceled
	}
	return fmt.Sprintf("query execution %s has been canceled", e.ID)
}

func (e *CanceledError) String() string {
	return e.Error()
}

// FailedError represents an error that a query execution has reached the
// FAILED state. Reason carries the state change reason reported by Athena verbatim.
type FailedError struct {
	ID     string
	Reason string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("query execution %s has failed. Reason: %s", e.ID, e.Reason)
}

// TimeoutError represents an error that a query execution has not reached a
// terminal state before the configured deadline.
type TimeoutError struct {
	ID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query execution %s has timed out", e.ID)
}

// QueryConfig is configurations for query executions.
type QueryConfig struct {
	Database  string
	Location  string
	Workgroup string
}

// Query represents a query to be executed.
// Query is NOT goroutine-safe so must be used in a single goroutine.
type Query struct {
	*QueryConfig
	*Result
	WaitInterval time.Duration

	client athenaiface.AthenaAPI
	query  string
	id     string
}

// NewQuery creates a new Query struct.
// `query` string must be a single SQL statement rather than multiple ones joined by semicolons.
func NewQuery(client athenaiface.AthenaAPI, cfg *QueryConfig, query string) *Query {
	if client == nil || cfg == nil {
		panic("client or cfg is nil") // Obviously it's a bug
	}

	q := &Query{
		QueryConfig:  cfg,
		Result:       &Result{},
		WaitInterval: DefaultWaitInterval,
		client:       client,
		query:        query,
	}
	log.Printf("Created Query: %#v\n", q)
	return q
}

// NewQueryFromInfo creates a new Query struct from an existing query execution.
// The returned Query can fetch its results but must not be started again.
func NewQueryFromInfo(client athenaiface.AthenaAPI, cfg *QueryConfig, info *athena.QueryExecution) *Query {
	q := NewQuery(client, cfg, aws.StringValue(info.Query))
	q.id = aws.StringValue(info.QueryExecutionId)
	q.Result.info = info
	return q
}

// WithWaitInterval sets interval to q and returns itself.
func (q *Query) WithWaitInterval(interval time.Duration) *Query {
	q.WaitInterval = interval
	return q
}

// Start starts the specified query but does not wait for it to complete.
func (q *Query) Start(ctx context.Context) error {
	params := &athena.StartQueryExecutionInput{
		QueryString:           &q.query,
		ClientRequestToken:    aws.String(uuid.NewString()),
		QueryExecutionContext: &athena.QueryExecutionContext{Database: &q.Database},
		ResultConfiguration:   &athena.ResultConfiguration{OutputLocation: &q.Location},
	}
	if q.Workgroup != "" {
		params.WorkGroup = &q.Workgroup
	}

	qe, err := q.client.StartQueryExecutionWithContext(ctx, params)
	if err != nil {
		if cerr, ok := err.(awserr.Error); ok && cerr.Code() == request.CanceledErrorCode {
			return &CanceledError{Query: q.query}
		}
		return errors.Wrap(err, "StartQueryExecution API error")
	}

	q.id = aws.StringValue(qe.QueryExecutionId)
	log.Printf("Query execution ID: %s\n", q.id)
	return nil
}

// Wait waits for the query execution until its state has become SUCCEEDED, FAILED or CANCELLED.
//
// If the given Context has been canceled, it calls StopQueryExecution API and tries to cancel
// the query execution. If the Context's deadline has been exceeded instead, it stops the
// execution the same way and returns a TimeoutError.
//
// Transient GetQueryExecution API errors are retried up to maxPollAttempts consecutive
// times before being surfaced.
func (q *Query) Wait(ctx context.Context) error {
	if q.id == "" {
		return errors.New("query execution has not started yet or already failed to start")
	}

	input := &athena.GetQueryExecutionInput{QueryExecutionId: &q.id}
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			_, err := q.client.StopQueryExecution(&athena.StopQueryExecutionInput{QueryExecutionId: &q.id})
			if err != nil {
				return errors.Wrap(err, "StopQueryExecution API error")
			}
			if ctx.Err() == context.DeadlineExceeded {
				return &TimeoutError{ID: q.id}
			}
		default: // No op here by default
		}

		// Call the API without context since do not want context to cancel the API call
		qeo, err := q.client.GetQueryExecution(input)
		if err != nil {
			attempts++
			log.Printf("GetQueryExecution attempt %d failed: %v\n", attempts, err)
			if attempts >= maxPollAttempts {
				return errors.Wrapf(err, "GetQueryExecution API error after %d attempts", attempts)
			}
			time.Sleep(pollRetryInterval)
			continue
		}
		attempts = 0

		qe := qeo.QueryExecution
		q.info = qe
		state := aws.StringValue(qe.Status.State)
		log.Printf("State of query execution %s: %s\n", q.id, state)

		switch state {
		case athena.QueryExecutionStateSucceeded:
			return nil
		case athena.QueryExecutionStateFailed:
			reason := aws.StringValue(qe.Status.StateChangeReason)
			return &FailedError{ID: q.id, Reason: reason}
		case athena.QueryExecutionStateCancelled:
			return &CanceledError{Query: q.query, ID: q.id}
		}

		log.Printf("Query execution %s has not finished yet; Sleeping %s\n", q.id, q.WaitInterval)
		time.Sleep(q.WaitInterval)
	}
}

// GetResults gets the results of the query execution, following pagination
// tokens until every page has been read.
func (q *Query) GetResults(ctx context.Context) error {
	params := &athena.GetQueryResultsInput{
		QueryExecutionId: &q.id,
		MaxResults:       aws.Int64(maxResults),
	}

	rs := &athena.ResultSet{}
	callback := func(page *athena.GetQueryResultsOutput, lastPage bool) bool {
		if rs.ResultSetMetadata == nil {
			rs.ResultSetMetadata = page.ResultSet.ResultSetMetadata
		}
		rs.Rows = append(rs.Rows, page.ResultSet.Rows...)
		return !lastPage
	}

	if err := q.client.GetQueryResultsPagesWithContext(ctx, params, callback); err != nil {
		if cerr, ok := err.(awserr.Error); ok && cerr.Code() == request.CanceledErrorCode {
			return &CanceledError{Query: q.query, ID: q.id}
		}
		return errors.Wrap(err, "GetQueryResults API error")
	}

	q.rs = rs
	return nil
}

// Run starts the specified query, waits for it to complete and fetches the results.
func (q *Query) Run(ctx context.Context) (*Result, error) {
	if err := q.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to start query execution")
	}
	if err := q.Wait(ctx); err != nil {
		return nil, err
	}
	if err := q.GetResults(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to get query results")
	}
	return q.Result, nil
}
