package cmd

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ccakes/athenacli/core"
)

const commandVersion = "0.2.0"

var (
	cfgFile     string
	showVersion bool
	config      = &core.Config{}

	stdout io.Writer = os.Stdout
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "athenacli",
	Short: "Athenacli is a simple command line tool that runs SQL statements on Amazon Athena.",
	Long: `Athenacli is a simple command line tool that runs SQL statements on Amazon Athena.

It submits each statement to Athena, waits for it to complete and prints the
results as a table or CSV. Statements run strictly one at a time, in the order
given; the first failure aborts the remaining statements.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(config, cfgFile, cmd, os.Args[1:]); err != nil {
			return err
		}

		// Logging is off by default; -v turns it on
		if config.Verbose == 0 {
			log.SetOutput(ioutil.Discard)
		} else {
			log.SetOutput(os.Stderr)
		}

		if config.Output != "" {
			f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return errors.Wrap(err, "failed to open output file")
			}
			stdout = f
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintln(stdout, commandVersion)
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fatal(err)
	}
}

func init() {
	// Define global flags
	f := RootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "Config file path (default is $HOME/.athenacli/config)")
	f.StringVar(&config.Section, "section", "default", "The section in config file to use")
	f.StringVarP(&config.Profile, "profile", "p", "default", "Use a specific profile from your credential file")
	f.StringVarP(&config.Region, "region", "r", os.Getenv("AWS_REGION"), "The AWS region to use")
	f.CountVarP(&config.Verbose, "verbose", "v", "Increase logging verbosity (-v: app logs, -vv: also AWS API debug logs)")
	f.BoolVar(&config.Silent, "silent", false, "Do not show progress messages")
	f.StringVarP(&config.Output, "output", "o", "", "Write results to a file instead of stdout")

	RootCmd.Flags().BoolVar(&showVersion, "version", false, "Print the version number and exit")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ERROR:", err)
	os.Exit(1)
}

func printConfigFileWarning(err error) {
	switch e := errors.Cause(err).(type) {
	case *os.PathError:
		log.Println("No config file found:", e)
		fmt.Fprintf(os.Stderr, "No config file found on %s. Using only command line flags\n", e.Path)
	case *core.SectionError:
		log.Println("Error:", e)
		fmt.Fprintf(os.Stderr, "Section '%s' not found in %s. Please check if the '%s' section exists in the config file and add it if it does not. Using only command line flags now\n",
			e.Section, e.Path, e.Section)
	default:
		log.Println("Error loading config file:", e)
		fmt.Fprintln(os.Stderr, "Error loading config file. Use -v flag for more details. Using only command line flags now")
	}
}

// initConfig loads configurations from the config file and then overrides them by parsing flags.
// rawArgs should be os.Args[1:].
func initConfig(cfg *core.Config, cfgFile string, cmd *cobra.Command, rawArgs []string) error {
	if err := core.LoadConfigFile(cfg, cfgFile); err != nil && !cfg.Silent {
		printConfigFileWarning(err)
	}
	// Parse flags again to override configs in config file.
	return cmd.ParseFlags(rawArgs)
}

// newClient creates a new Athena client.
func newClient(cfg *core.Config) *athena.Athena {
	c := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Verbose >= 2 {
		c = c.WithLogLevel(aws.LogDebugWithHTTPBody | aws.LogDebugWithRequestErrors)
	}
	return athena.New(session.Must(session.NewSessionWithOptions(session.Options{
		Config:  *c,
		Profile: cfg.Profile,
	})))
}
