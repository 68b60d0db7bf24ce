package cmd

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/service/athena/athenaiface"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ccakes/athenacli/core"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run [flags] [statements...]",
	Short: "Run SQL statements on Amazon Athena",
	Long: `Run one or more SQL statements on Amazon Athena and print the results.

Statements are read from --command flags, positional arguments, a file given
with --file and data piped on stdin, split by semicolons and run strictly in
order, one at a time. The first statement to fail aborts the remaining ones
and the command exits non-zero.

With no statements given, run starts an interactive session.`,
	Example: `  # Run a single statement
  $ athenacli run --database sampledb --results s3://my-results/ "SELECT * FROM elb_logs LIMIT 10"

  # Run several statements in order
  $ athenacli run -d sampledb -b s3://my-results/ -c "SHOW TABLES" -c "SELECT count(*) FROM elb_logs"

  # Run all statements in a file
  $ athenacli run -d sampledb -b s3://my-results/ --file queries.sql

  # Print the results in CSV format
  $ athenacli run -d sampledb -b s3://my-results/ --format csv "SHOW DATABASES"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(cmd, args, newClient(config), config, os.Stdin, stdout)
	},
}

var (
	commands []string
	sqlFile  string
)

type stater interface {
	Stat() (os.FileInfo, error)
}

type statReader interface {
	io.Reader
	stater
}

func init() {
	RootCmd.AddCommand(runCmd)

	// Define flags
	f := runCmd.Flags()
	f.StringVarP(&config.Database, "database", "d", "", "The name of the database to run statements against")
	f.StringVarP(&config.Results, "results", "b", "", `The location in S3 where query results are stored. For example, "s3://bucket_name/prefix/"`)
	f.StringVarP(&config.Workgroup, "workgroup", "w", "", "The workgroup in which to run statements")
	f.StringArrayVarP(&commands, "command", "c", nil, "An SQL statement to run. Repeat the flag to run multiple statements in order")
	f.StringVarP(&sqlFile, "file", "f", "", "Read SQL statements from a file")
	f.StringVar(&config.Format, "format", "table", "The formatting style for command output. Valid values: table, csv")
	f.DurationVar(&config.Timeout, "timeout", 0, "The maximum time to wait for each statement to complete. Zero waits indefinitely")
}

func validateConfigForRun(cfg *core.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	log.Println("Validating database:", cfg.Database)
	if cfg.Database == "" {
		return errors.New("`database` setting is required for the `run` command. " +
			"Please specify it by using --database/-d flag or adding `database` setting into your config file.")
	}

	log.Println("Validating region:", cfg.Region)
	if cfg.Region == "" {
		return errors.New("`region` setting is required for the `run` command. " +
			"Please specify it by using --region/-r flag, setting the AWS_REGION environment variable " +
			"or adding `region` setting into your config file.")
	}

	log.Println("Validating results location:", cfg.Results)
	if !strings.HasPrefix(cfg.Results, "s3://") {
		return errors.New("valid `results` setting starting with 's3://' is required for the `run` command. " +
			"Please specify it by using --results/-b flag or adding `results` setting into your config file.")
	}

	return nil
}

// hasDataOn returns true if there is something to read on s, otherwise false.
func hasDataOn(s stater) bool {
	// Based on https://stackoverflow.com/a/26567513
	stat, err := s.Stat()
	if err != nil {
		log.Println("Error getting stat of file:", err)
		return false
	}
	log.Printf("File mode: %s (%o)\n", stat.Mode(), stat.Mode())
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func appendStdinData(args []string, stdin io.Reader) []string {
	log.Printf("Args before appending data on stdin: %#v\n", args)
	b, err := ioutil.ReadAll(stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ignoring data on stdin since having failed to read:", err)
		return args
	}

	data := string(b)
	log.Printf(`Read data from stdin:
--------------------
%s
--------------------
`, data)
	return append(args, data)
}

func runRun(cmd *cobra.Command, args []string, client athenaiface.AthenaAPI, cfg *core.Config, stdin statReader, out io.Writer) error {
	if err := validateConfigForRun(cfg); err != nil {
		return errors.Wrap(err, "validation for run command failed")
	}

	r := core.New(client, cfg, out)

	// Assemble statement sources: --command flags, positional args,
	// --file contents and data on stdin, in that order
	stmts := append([]string{}, commands...)
	stmts = append(stmts, args...)
	if sqlFile != "" {
		stmts = append(stmts, "file://"+sqlFile)
	}
	if hasDataOn(stdin) {
		log.Println("Stdin seems to have some data. Reading and appending it to args")
		stmts = appendStdinData(stmts, stdin)
	}

	// Run the given statements
	if len(stmts) > 0 {
		log.Printf("%d statement source(s) provided: %#v\n", len(stmts), stmts)
		return r.RunQuery(stmts...)
	}

	// Run REPL mode
	log.Printf("No statements provided. Starting REPL mode")
	return r.RunREPL()
}
