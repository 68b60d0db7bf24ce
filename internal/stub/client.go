// Package stub provides scripted stand-ins for the Athena API used in tests.
package stub

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/aws/aws-sdk-go/service/athena/athenaiface"
	"github.com/pkg/errors"
)

var (
	successfulQueryStateFlow = []string{
		athena.QueryExecutionStateQueued,
		athena.QueryExecutionStateRunning,
		athena.QueryExecutionStateSucceeded,
	}

	failedQueryStateFlow = []string{
		athena.QueryExecutionStateQueued,
		athena.QueryExecutionStateRunning,
		athena.QueryExecutionStateFailed,
	}
)

// StartQueryExecutionStub simulates StartQueryExecution API.
type StartQueryExecutionStub struct {
	athenaiface.AthenaAPI
	ID string

	// LastInput records the most recent input for assertions.
	LastInput *athena.StartQueryExecutionInput
}

// StartQueryExecution runs the SQL query statements contained in the Query string.
func (s *StartQueryExecutionStub) StartQueryExecution(input *athena.StartQueryExecutionInput) (*athena.StartQueryExecutionOutput, error) {
	s.LastInput = input
	query := aws.StringValue(input.QueryString)
	for _, kwd := range []string{"SELECT", "SHOW", "DESCRIBE"} {
		if strings.HasPrefix(query, kwd) {
			resp := &athena.StartQueryExecutionOutput{
				QueryExecutionId: &s.ID,
			}
			return resp, nil
		}
	}
	return nil, errors.Errorf("InvalidRequestException: %q", query)
}

// StartQueryExecutionWithContext runs the SQL query statements contained in the Query string.
func (s *StartQueryExecutionStub) StartQueryExecutionWithContext(ctx aws.Context, input *athena.StartQueryExecutionInput, opts ...request.Option) (*athena.StartQueryExecutionOutput, error) {
	return s.StartQueryExecution(input)
}

// GetQueryExecutionStub simulates GetQueryExecution API.
type GetQueryExecutionStub struct {
	athenaiface.AthenaAPI
	athena.QueryExecution
	// ErrMsg makes every call fail with this message.
	ErrMsg string
	// TransientErrs makes the first N calls fail before the stub starts responding.
	TransientErrs int
	// FailureReason is reported as the state change reason once the FAILED state is reached.
	FailureReason string

	queryStateFlow []string
	stateCnt       int
	errCnt         int
	canceled       bool
}

// NewGetQueryExecutionStub creates a new GetQueryExecutionStub which returns successful query states in order.
func NewGetQueryExecutionStub() *GetQueryExecutionStub {
	return &GetQueryExecutionStub{
		queryStateFlow: successfulQueryStateFlow,
	}
}

// NewGetFailedQueryExecutionStub creates a new GetQueryExecutionStub which returns failed query states
// in order, reporting reason once the FAILED state is reached.
func NewGetFailedQueryExecutionStub(reason string) *GetQueryExecutionStub {
	return &GetQueryExecutionStub{
		queryStateFlow: failedQueryStateFlow,
		FailureReason:  reason,
	}
}

// Cancel makes the stub report the CANCELLED state from now on.
func (s *GetQueryExecutionStub) Cancel() {
	s.canceled = true
}

// GetQueryExecution returns information about a single execution of a query.
func (s *GetQueryExecutionStub) GetQueryExecution(input *athena.GetQueryExecutionInput) (*athena.GetQueryExecutionOutput, error) {
	if s.ErrMsg != "" {
		return nil, errors.New(s.ErrMsg)
	}
	if s.errCnt < s.TransientErrs {
		s.errCnt++
		return nil, errors.New("RequestError: send request failed")
	}

	l := len(s.queryStateFlow)
	state := s.queryStateFlow[l-1]
	if s.stateCnt < l {
		state = s.queryStateFlow[s.stateCnt]
	}
	if s.canceled {
		state = athena.QueryExecutionStateCancelled
	}

	s.stateCnt++

	if s.QueryExecution.Status == nil {
		s.QueryExecution.SetStatus(&athena.QueryExecutionStatus{})
	}
	s.QueryExecution.Status.SetState(state)
	if state == athena.QueryExecutionStateFailed {
		s.QueryExecution.Status.SetStateChangeReason(s.FailureReason)
	}
	resp := &athena.GetQueryExecutionOutput{
		QueryExecution: &s.QueryExecution,
	}
	return resp, nil
}

// StopQueryExecution cancels the query execution.
func (s *GetQueryExecutionStub) StopQueryExecution(input *athena.StopQueryExecutionInput) (*athena.StopQueryExecutionOutput, error) {
	s.Cancel()
	return &athena.StopQueryExecutionOutput{}, nil
}

// GetQueryResultsStub simulates GetQueryResults and GetQueryResultsPages API.
// The rows of ResultSet are split across MaxPages pages in order.
type GetQueryResultsStub struct {
	athenaiface.AthenaAPI
	athena.ResultSet
	ErrMsg   string
	MaxPages int
	page     int
}

// GetQueryResults returns the results of a single query execution specified by QueryExecutionId.
func (s *GetQueryResultsStub) GetQueryResults(input *athena.GetQueryResultsInput) (*athena.GetQueryResultsOutput, error) {
	if s.ErrMsg != "" {
		return nil, errors.New(s.ErrMsg)
	}

	pages := s.MaxPages
	if pages < 1 {
		pages = 1
	}

	total := len(s.ResultSet.Rows)
	per := (total + pages - 1) / pages
	start := s.page * per
	end := start + per
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	s.page++
	resp := &athena.GetQueryResultsOutput{
		ResultSet: &athena.ResultSet{
			ResultSetMetadata: s.ResultSet.ResultSetMetadata,
			Rows:              s.ResultSet.Rows[start:end],
		},
	}
	if s.page < pages {
		resp.SetNextToken("next")
	}
	return resp, nil
}

// GetQueryResultsPages iterates over the pages of a GetQueryResults operation,
// calling the callback function with the response data for each page.
func (s *GetQueryResultsStub) GetQueryResultsPages(input *athena.GetQueryResultsInput, callback func(*athena.GetQueryResultsOutput, bool) bool) error {
	cont := true
	for cont {
		qr, err := s.GetQueryResults(input)
		if err != nil {
			return err
		}
		lastPage := qr.NextToken == nil
		cont = callback(qr, lastPage)
		cont = cont && !lastPage
	}
	return nil
}

// GetQueryResultsPagesWithContext iterates over the pages of a GetQueryResults operation,
// calling the callback function with the response data for each page.
func (s *GetQueryResultsStub) GetQueryResultsPagesWithContext(ctx aws.Context, input *athena.GetQueryResultsInput, callback func(*athena.GetQueryResultsOutput, bool) bool, opts ...request.Option) error {
	return s.GetQueryResultsPages(input, callback)
}

// Result is the scripted outcome of a single query statement.
type Result struct {
	ID           string
	Query        string
	ExecTime     int64
	ScannedBytes int64
	Location     string
	Submitted    time.Time
	// ErrMsg, when non-empty, makes the execution end in the FAILED state
	// with this message as the state change reason.
	ErrMsg    string
	ResultSet athena.ResultSet
	MaxPages  int
}

type execution struct {
	result  *Result
	status  GetQueryExecutionStub
	results GetQueryResultsStub
}

// Client is a stub of the Athena client scripted with one Result per statement.
type Client struct {
	athenaiface.AthenaAPI

	// TransientErrs makes the first N GetQueryExecution calls of every
	// execution fail before the stub starts responding.
	TransientErrs int

	// StartCalls records every query string passed to StartQueryExecution in order.
	StartCalls []string
	// StartInputs records every StartQueryExecution input in order.
	StartInputs []*athena.StartQueryExecutionInput

	order   []*execution
	byID    map[string]*execution
	byQuery map[string]*execution
}

// NewClient returns a new stub Client scripted with the given results.
func NewClient(results ...*Result) *Client {
	c := &Client{
		byID:    make(map[string]*execution, len(results)),
		byQuery: make(map[string]*execution, len(results)),
	}
	for _, r := range results {
		flow := successfulQueryStateFlow
		if r.ErrMsg != "" {
			flow = failedQueryStateFlow
		}
		e := &execution{
			result: r,
			status: GetQueryExecutionStub{
				queryStateFlow: flow,
				FailureReason:  r.ErrMsg,
			},
			results: GetQueryResultsStub{
				ResultSet: r.ResultSet,
				MaxPages:  r.MaxPages,
			},
		}
		e.status.QueryExecution = *c.queryExecution(r)
		c.order = append(c.order, e)
		c.byID[r.ID] = e
		c.byQuery[strings.TrimSuffix(r.Query, ";")] = e
	}
	return c
}

func (c *Client) queryExecution(r *Result) *athena.QueryExecution {
	qx := &athena.QueryExecution{}
	qx.SetQueryExecutionId(r.ID)
	qx.SetQuery(strings.TrimSuffix(r.Query, ";"))
	qx.SetStatistics(&athena.QueryExecutionStatistics{
		EngineExecutionTimeInMillis: aws.Int64(r.ExecTime),
		DataScannedInBytes:          aws.Int64(r.ScannedBytes),
	})
	qx.SetResultConfiguration(&athena.ResultConfiguration{
		OutputLocation: aws.String(r.Location),
	})
	qx.SetStatus(&athena.QueryExecutionStatus{
		SubmissionDateTime: aws.Time(r.Submitted),
	})
	return qx
}

func (c *Client) executionByID(id string) (*execution, error) {
	e, ok := c.byID[id]
	if !ok {
		return nil, errors.Errorf("InvalidRequestException: unknown QueryExecutionId %q", id)
	}
	return e, nil
}

// StartQueryExecution runs the SQL query statements contained in the Query string.
func (c *Client) StartQueryExecution(input *athena.StartQueryExecutionInput) (*athena.StartQueryExecutionOutput, error) {
	query := aws.StringValue(input.QueryString)
	c.StartCalls = append(c.StartCalls, query)
	c.StartInputs = append(c.StartInputs, input)

	e, ok := c.byQuery[query]
	if !ok {
		return nil, errors.Errorf("InvalidRequestException: %q", query)
	}
	e.status.TransientErrs = c.TransientErrs
	return &athena.StartQueryExecutionOutput{
		QueryExecutionId: aws.String(e.result.ID),
	}, nil
}

// StartQueryExecutionWithContext runs the SQL query statements contained in the Query string.
func (c *Client) StartQueryExecutionWithContext(ctx aws.Context, input *athena.StartQueryExecutionInput, opts ...request.Option) (*athena.StartQueryExecutionOutput, error) {
	return c.StartQueryExecution(input)
}

// GetQueryExecution returns information about a single execution of a query.
func (c *Client) GetQueryExecution(input *athena.GetQueryExecutionInput) (*athena.GetQueryExecutionOutput, error) {
	e, err := c.executionByID(aws.StringValue(input.QueryExecutionId))
	if err != nil {
		return nil, err
	}
	return e.status.GetQueryExecution(input)
}

// StopQueryExecution cancels the query execution.
func (c *Client) StopQueryExecution(input *athena.StopQueryExecutionInput) (*athena.StopQueryExecutionOutput, error) {
	e, err := c.executionByID(aws.StringValue(input.QueryExecutionId))
	if err != nil {
		return nil, err
	}
	return e.status.StopQueryExecution(input)
}

// GetQueryResults returns the results of a single query execution specified by QueryExecutionId.
func (c *Client) GetQueryResults(input *athena.GetQueryResultsInput) (*athena.GetQueryResultsOutput, error) {
	e, err := c.executionByID(aws.StringValue(input.QueryExecutionId))
	if err != nil {
		return nil, err
	}
	return e.results.GetQueryResults(input)
}

// GetQueryResultsPages iterates over the pages of a GetQueryResults operation,
// calling the callback function with the response data for each page.
func (c *Client) GetQueryResultsPages(input *athena.GetQueryResultsInput, callback func(*athena.GetQueryResultsOutput, bool) bool) error {
	e, err := c.executionByID(aws.StringValue(input.QueryExecutionId))
	if err != nil {
		return err
	}
	return e.results.GetQueryResultsPages(input, callback)
}

// GetQueryResultsPagesWithContext iterates over the pages of a GetQueryResults operation,
// calling the callback function with the response data for each page.
func (c *Client) GetQueryResultsPagesWithContext(ctx aws.Context, input *athena.GetQueryResultsInput, callback func(*athena.GetQueryResultsOutput, bool) bool, opts ...request.Option) error {
	return c.GetQueryResultsPages(input, callback)
}

// ListQueryExecutionsPagesWithContext returns the IDs of all scripted executions in one page.
func (c *Client) ListQueryExecutionsPagesWithContext(ctx aws.Context, input *athena.ListQueryExecutionsInput, callback func(*athena.ListQueryExecutionsOutput, bool) bool, opts ...request.Option) error {
	ids := make([]*string, len(c.order))
	for i, e := range c.order {
		ids[i] = aws.String(e.result.ID)
	}
	callback(&athena.ListQueryExecutionsOutput{QueryExecutionIds: ids}, true)
	return nil
}

// BatchGetQueryExecutionWithContext returns the scripted executions for the given IDs
// in their terminal states.
func (c *Client) BatchGetQueryExecutionWithContext(ctx aws.Context, input *athena.BatchGetQueryExecutionInput, opts ...request.Option) (*athena.BatchGetQueryExecutionOutput, error) {
	qxs := make([]*athena.QueryExecution, 0, len(input.QueryExecutionIds))
	for _, id := range input.QueryExecutionIds {
		e, err := c.executionByID(aws.StringValue(id))
		if err != nil {
			return nil, err
		}
		qx := c.queryExecution(e.result)
		state := athena.QueryExecutionStateSucceeded
		if e.result.ErrMsg != "" {
			state = athena.QueryExecutionStateFailed
		}
		qx.Status.SetState(state)
		qxs = append(qxs, qx)
	}
	return &athena.BatchGetQueryExecutionOutput{QueryExecutions: qxs}, nil
}
