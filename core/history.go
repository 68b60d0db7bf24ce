package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/athena"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/ccakes/athenacli/exec"
	"github.com/ccakes/athenacli/filter"
	"github.com/ccakes/athenacli/print"
)

// The number of query execution IDs a single ListQueryExecutions page carries.
// https://docs.aws.amazon.com/athena/latest/APIReference/API_ListQueryExecutions.html
const listPageSize = 50

// fetchQueryExecutions fetches recent query executions and returns them sorted
// by submission date in the descending order. Pages are read one at a time.
func (r *Runner) fetchQueryExecutions(ctx context.Context) ([]*athena.QueryExecution, error) {
	c := int(r.cfg.Count)
	log.Printf("Fetching %d query executions to be listed\n", c)
	maxPages := calcMaxPages(c)
	log.Printf("Paginating query executions to up to %.0f pages\n", maxPages)

	qxs := make([]*athena.QueryExecution, 0, listPageSize)
	var pageErr error
	pageNum := 1.0
	callback := func(page *athena.ListQueryExecutionsOutput, lastPage bool) bool {
		bgqx, err := r.client.BatchGetQueryExecutionWithContext(ctx, &athena.BatchGetQueryExecutionInput{
			QueryExecutionIds: page.QueryExecutionIds,
		})
		if err != nil {
			pageErr = errors.Wrap(err, "BatchGetQueryExecution API error")
			return false
		}
		qxs = append(qxs, bgqx.QueryExecutions...)

		defer func() {
			pageNum++
		}()

		log.Printf("# of pages: current = %.0f, max = %.0f\n", pageNum, maxPages)
		return !lastPage && pageNum < maxPages
	}

	err := r.client.ListQueryExecutionsPagesWithContext(ctx, &athena.ListQueryExecutionsInput{}, callback)
	if err != nil {
		return nil, errors.Wrap(err, "ListQueryExecutions API error")
	}
	if pageErr != nil {
		return nil, pageErr
	}

	log.Printf("%d query executions have been fetched\n", len(qxs))
	log.Println("Sorting query executions by SubmissionDateTime in descending order")
	sort.Slice(qxs, func(i, j int) bool {
		// Sort by SubmissionDateTime in descending order
		return qxs[i].Status.SubmissionDateTime.After(*qxs[j].Status.SubmissionDateTime)
	})
	return qxs, nil
}

func (r *Runner) filterQueryExecutions(qxs []*athena.QueryExecution) ([]*athena.QueryExecution, error) {
	entryMap := make(map[string]*athena.QueryExecution, len(qxs))
	entries := make([]string, 0, len(qxs))
	for _, qx := range qxs {
		if aws.StringValue(qx.Status.State) != athena.QueryExecutionStateSucceeded {
			// Skip if not succeeded
			log.Printf("Eliminating QueryExecutionId %s because of %s state\n",
				aws.StringValue(qx.QueryExecutionId),
				aws.StringValue(qx.Status.State),
			)
			continue
		}
		entry := generateEntry(qx)
		entryMap[entry] = qx
		entries = append(entries, entry)
	}

	// Reduce entries
	c := int(r.cfg.Count)
	l := len(entries)
	if c == 0 || c > l {
		c = l
	}
	log.Printf("Reducing the number of entries from %d to %d\n", l, c)
	entries = entries[:c]

	history := strings.Join(entries, "\n")
	r.f.SetInput(history)

	if err := r.f.Run(context.Background()); err != nil {
		return nil, errors.Wrap(err, "error filtering query executions")
	}

	l = r.f.Len()
	log.Printf("Selected %d query execution entries\n", l)
	selectedQxs := make([]*athena.QueryExecution, 0, l)
	r.f.Each(func(item string) bool {
		if entry, ok := entryMap[item]; ok {
			selectedQxs = append(selectedQxs, entry)
		}
		return true
	})
	return selectedQxs, nil
}

func (r *Runner) selectQueryExecutions(ctx context.Context) ([]*athena.QueryExecution, error) {
	if r.f == nil {
		log.Println("Filter not set in Runner. Creating and setting a new Filter")
		r.f = filter.New()
	}

	loadingCtx, cancel := context.WithCancel(ctx)
	defer cancel() // Ensure to cancel

	// Print loading messages
	if !r.cfg.Silent {
		go r.showProgressMsg(loadingCtx, loadingHistoryMsg)
	}

	qxs, err := r.fetchQueryExecutions(loadingCtx)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching query executions")
	}

	// Stop printing loading messages
	cancel()

	selectedQxs, err := r.filterQueryExecutions(qxs)
	if err != nil && !strings.Contains(err.Error(), "canceled") { // Ignore user-canceled error
		return nil, errors.Wrap(err, "error selecting query executions")
	}

	return selectedQxs, nil
}

// ShowHistory lists completed query executions, lets the user select entries
// interactively and prints the results of the selected executions in order.
func (r *Runner) ShowHistory() error {
	// Trap SIGINT signal
	signal.Notify(r.signalCh, os.Interrupt)
	defer signal.Stop(r.signalCh)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Watch user-initiated cancellation
	go func() {
		select {
		case <-r.signalCh:
			log.Println("Starting cancellation initiated by user")
			cancel()
		case <-ctx.Done(): // Exit normally
		}
	}()

	qxs, err := r.selectQueryExecutions(ctx)
	if err != nil {
		r.printE("\n")
		if strings.Contains(err.Error(), "canceled") { // Ignore user-canceled error
			return nil
		}
		return errors.Wrap(err, "error selecting query executions")
	}

	// Print messages while fetching query results
	fetchingCtx, fetchingDone := context.WithCancel(ctx)
	defer fetchingDone()
	if !r.cfg.Silent {
		r.printE("\n")
		go r.showProgressMsg(fetchingCtx, fetchingResultsMsg)
	}

	// Fetch and print each query result, one at a time
	for _, qx := range qxs {
		log.Printf("Start fetching query results of QueryExecutionId %s\n", aws.StringValue(qx.QueryExecutionId))
		q := exec.NewQueryFromInfo(r.client, r.cfg.QueryConfig(), qx).WithWaitInterval(r.waitInterval)
		if err := q.GetResults(ctx); err != nil {
			fetchingDone()
			r.print("\n")
			if cerr, ok := errors.Cause(err).(*exec.CanceledError); ok {
				log.Println(cerr)
				return nil
			}
			return errors.Wrapf(err, "error fetching results of query execution %s",
				aws.StringValue(qx.QueryExecutionId))
		}

		r.print("\n")
		r.printer.Print(q.Result)
	}

	log.Println("Fetched all query results")
	return nil
}

// generateEntry makes a single history line for a query execution.
func generateEntry(qx *athena.QueryExecution) string {
	query := aws.StringValue(qx.Query)
	if strings.Contains(query, "\n") {
		// Serialize a multi-line single query
		query = strings.Join(strings.Split(query, "\n"), " ")
	}

	entry := fmt.Sprintf("%s\t%s\t%s\t%.2f seconds\t%s",
		humanize.Time(aws.TimeValue(qx.Status.SubmissionDateTime)),
		query,
		aws.StringValue(qx.Status.State),
		float64(aws.Int64Value(qx.Statistics.EngineExecutionTimeInMillis))/1000,
		print.FormatBytes(aws.Int64Value(qx.Statistics.DataScannedInBytes)),
	)
	return entry
}

func calcMaxPages(c int) float64 {
	if c == 0 {
		// No page limit if zero is given
		return math.Inf(+1)
	}

	maxPages := float64(c / listPageSize)
	if c%listPageSize != 0 {
		maxPages++
	}
	return maxPages
}
