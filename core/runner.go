package core

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/service/athena/athenaiface"
	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/ccakes/athenacli/exec"
	"github.com/ccakes/athenacli/filter"
	"github.com/ccakes/athenacli/print"
)

const (
	refreshInterval = 100 * time.Millisecond

	filePrefix = "file://"

	noStmtFound = "No SQL statements found to execute"

	runningQueryMsg    = "Running query..."
	loadingHistoryMsg  = "Loading history..."
	fetchingResultsMsg = "Fetching results..."

	replPrompt      = "athenacli> "
	historyFileName = "history"
)

var spinnerChars = []string{"⠋", "⠙", "⠚", "⠞", "⠖", "⠦", "⠴", "⠲", "⠳", "⠓"}

type safeWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (sw *safeWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

// readlineCloser is an interface to read every line in REPL and then close it.
type readlineCloser interface {
	Readline() (string, error)
	Close() error
}

// Runner drives SQL statements through Athena strictly one at a time:
// submit, wait, fetch results, print, then move on to the next statement.
type Runner struct {
	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer

	rl      readlineCloser
	f       filter.Filter
	printer print.Printer

	client athenaiface.AthenaAPI
	cfg    *Config

	refreshInterval time.Duration
	waitInterval    time.Duration

	signalCh chan os.Signal
}

// New creates a new Runner.
func New(client athenaiface.AthenaAPI, cfg *Config, out io.Writer) *Runner {
	out = &safeWriter{w: out}
	r := &Runner{
		stdin:           os.Stdin,
		stdout:          out,
		stderr:          &safeWriter{w: os.Stderr},
		printer:         createPrinter(out, cfg),
		cfg:             cfg,
		client:          client,
		refreshInterval: refreshInterval,
		waitInterval:    exec.DefaultWaitInterval,
		signalCh:        make(chan os.Signal, 1),
	}
	return r
}

// WithStderr sets stderr to r.
func (r *Runner) WithStderr(stderr io.Writer) *Runner {
	r.stderr = &safeWriter{w: stderr}
	return r
}

// WithWaitInterval sets wait interval to r.
func (r *Runner) WithWaitInterval(interval time.Duration) *Runner {
	r.waitInterval = interval
	return r
}

func (r *Runner) print(x ...interface{}) {
	fmt.Fprint(r.stdout, x...)
}

func (r *Runner) println(x ...interface{}) {
	fmt.Fprintln(r.stdout, x...)
}

func (r *Runner) printErr(err error, message string) {
	fmt.Fprintf(r.stderr, "Error: %s: %s\n", message, err)
}

func (r *Runner) printE(x ...interface{}) {
	fmt.Fprint(r.stderr, x...)
}

// showProgressMsg shows a given progress message until a context is canceled.
func (r *Runner) showProgressMsg(ctx context.Context, msg string) {
	s := spinner.New(spinnerChars, r.refreshInterval)
	s.Writer = r.stderr
	s.Suffix = " " + msg
	s.Start()
	<-ctx.Done() // Wait until ctx is done
	s.Stop()
}

// runSingleQuery submits a single SQL statement, waits for it to reach a
// terminal state, fetches its results and prints them.
func (r *Runner) runSingleQuery(ctx context.Context, query string) error {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	progressCtx, progressDone := context.WithCancel(context.Background())
	defer progressDone()
	if !r.cfg.Silent {
		go r.showProgressMsg(progressCtx, runningQueryMsg)
	}

	log.Printf("Start running %q\n", query)
	q := exec.NewQuery(r.client, r.cfg.QueryConfig(), query).WithWaitInterval(r.waitInterval)
	res, err := q.Run(ctx)

	progressDone()
	r.print("\n")

	if err != nil {
		return err
	}

	r.printer.Print(res)
	return nil
}

// RunQuery runs the given queries.
// It splits each argument into statements by semicolons and runs them strictly
// in order, one at a time. It skips empty statements. The first statement to
// fail aborts the remaining ones and its error is returned; results of the
// statements completed before the failure have been printed already.
func (r *Runner) RunQuery(queries ...string) error {
	// Split SQL statements
	stmts, err := splitStmts(queries)
	if err != nil {
		return errors.Wrap(err, "failed to read file")
	}
	n := len(stmts)
	log.Printf("%d SQL statements to execute: %#v\n", n, stmts)
	if n == 0 {
		r.println(noStmtFound)
		return nil
	}

	// Trap SIGINT signal; cancellation stops the in-flight execution remotely
	signal.Notify(r.signalCh, os.Interrupt)
	defer signal.Stop(r.signalCh)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-r.signalCh: // User has canceled the query execution
			log.Println("Starting cancellation initiated by user")
			cancel()
		case <-ctx.Done(): // Exit normally
		}
	}()

	for i, stmt := range stmts {
		if err := r.runSingleQuery(ctx, stmt); err != nil {
			if n > 1 {
				log.Printf("Aborting %d remaining statement(s)\n", n-i-1)
			}
			return errors.Wrapf(err, "statement %d of %d failed", i+1, n)
		}
	}

	log.Println("All query executions have been completed")
	return nil
}

func (r *Runner) setupREPL() error {
	// rl is already set, no need to be setup again
	if r.rl != nil {
		log.Printf("REPL setup has been done already: %#v\n", r.rl)
		return nil
	}

	dir, err := ensureDefaultDir()
	if err != nil {
		return errors.Wrap(err, "error ensuring the default directory exists")
	}

	historyFile := filepath.Join(dir, historyFileName)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            replPrompt,
		HistoryFile:       historyFile,
		HistorySearchFold: true,
		Stdin:             r.stdin,
		Stdout:            r.stdout,
	})
	if err != nil {
		return err
	}

	log.Printf("Query history will be saved to %s\n", historyFile)

	r.rl = rl
	return nil
}

// RunREPL runs REPL mode (interactive mode).
func (r *Runner) RunREPL() error {
	if err := r.setupREPL(); err != nil {
		return errors.Wrap(err, "failed to setup REPL")
	}
	defer r.rl.Close()

	for {
		// Read a line from stdin
		query, err := r.rl.Readline()
		if err != nil {
			switch err {
			case readline.ErrInterrupt:
				if query == "" {
					log.Println("Ctrl-C is pressed on empty line, exitting REPL")
					return nil
				}
				log.Println("Ctrl-C is pressed on non-empty line, continue to run REPL")
				r.println("To exit, press Ctrl-C again or Ctrl-D")
				continue
			case io.EOF:
				log.Println("Ctrl-D is pressed, exitting REPL")
				return nil
			default:
				r.printErr(err, "error reading line")
			}
		}

		// Ignore empty input
		if query == "" {
			continue
		}

		// Run the query; a failure does not end the REPL session
		log.Printf("Given input: %q\n", query)
		if err := r.RunQuery(query); err != nil {
			cause := errors.Cause(err)
			if cerr, ok := cause.(*exec.CanceledError); ok {
				log.Println(cerr) // Just log the cancellation
				continue
			}
			r.printErr(err, "query execution failed")
		}
	}
}

// readFile reads the content of a file whose path has `file://` prefix.
func readFile(arg string) (string, error) {
	filename := strings.TrimPrefix(arg, filePrefix)
	log.Println("Given file name:", filename)
	content, err := ioutil.ReadFile(filename)
	if err != nil {
		return "", err
	}
	c := string(content)
	log.Printf(`Content of %s:
--------------------
%s
--------------------
`, filename, c)
	return c, nil
}

// splitStmts splits SQL statements contained in args by semicolons and flattens them.
// It drops empty statements.
//
// If an argument has `file://` prefix, splitStmts reads the file content
// and splits each statement as well. A file that cannot be read is an error;
// the user named it explicitly, so it must not be skipped silently.
func splitStmts(args []string) ([]string, error) {
	stmts := make([]string, 0, len(args))

	for _, arg := range args {
		arg := arg // Capture locally
		if strings.HasPrefix(arg, filePrefix) {
			log.Printf("%q prefix found in %q, reading its contents from file\n", filePrefix, arg)
			var err error
			arg, err = readFile(arg)
			if err != nil {
				return nil, err
			}
		}

		splitted := strings.Split(arg, ";")
		for _, s := range splitted {
			stmt := strings.TrimSpace(s)
			if stmt != "" {
				stmts = append(stmts, stmt)
			}
		}
	}

	return stmts, nil
}

func createPrinter(out io.Writer, cfg *Config) print.Printer {
	switch cfg.Format {
	case "csv":
		return print.NewCSV(out)
	default:
		return print.NewTable(out)
	}
}

func ensureDefaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "failed to find your home directory")
	}

	defaultDirPath := filepath.Join(home, defaultDir)
	if err := os.MkdirAll(defaultDirPath, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create default directory")
	}
	return defaultDirPath, nil
}
