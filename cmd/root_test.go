package cmd

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/ccakes/athenacli/core"
	"github.com/ccakes/athenacli/internal/testhelper"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

func newFlagCommand(cfg *core.Config) *cobra.Command {
	cmd := &cobra.Command{}
	f := cmd.Flags()
	f.StringVar(&cfg.Section, "section", "default", "")
	f.StringVarP(&cfg.Region, "region", "r", "", "")
	f.StringVarP(&cfg.Database, "database", "d", "", "")
	f.StringVarP(&cfg.Results, "results", "b", "", "")
	return cmd
}

func TestInitConfig(t *testing.T) {
	fileCfg := &core.Config{
		Section:  "default",
		Region:   "us-east-1",
		Database: "sampledb",
		Results:  "s3://samplebucket/",
	}
	_, file, cleanup, err := testhelper.CreateConfigFile("TestInitConfig", fileCfg)
	assert.NoError(t, err)
	defer cleanup()

	tests := []struct {
		rawArgs []string
		want    *core.Config
	}{
		{
			// Config file values only
			rawArgs: []string{},
			want: &core.Config{
				Section:  "default",
				Region:   "us-east-1",
				Database: "sampledb",
				Results:  "s3://samplebucket/",
			},
		},
		{
			// Flags override the config file
			rawArgs: []string{"--region", "us-west-2", "--database", "testdb"},
			want: &core.Config{
				Section:  "default",
				Region:   "us-west-2",
				Database: "testdb",
				Results:  "s3://samplebucket/",
			},
		},
	}

	for _, tt := range tests {
		cfg := &core.Config{Section: "default"}
		cmd := newFlagCommand(cfg)

		err := initConfig(cfg, file.Name(), cmd, tt.rawArgs)

		assert.NoError(t, err, "Args: %#v", tt.rawArgs)
		assert.Equal(t, tt.want.Region, cfg.Region, "Args: %#v", tt.rawArgs)
		assert.Equal(t, tt.want.Database, cfg.Database, "Args: %#v", tt.rawArgs)
		assert.Equal(t, tt.want.Results, cfg.Results, "Args: %#v", tt.rawArgs)
	}
}

func TestInitConfigNoConfigFile(t *testing.T) {
	cfg := &core.Config{Section: "default", Silent: true}
	cmd := newFlagCommand(cfg)
	path := filepath.Join(os.TempDir(), "no_existent_config")

	// Missing config file is not an error; flags are still parsed.
	err := initConfig(cfg, path, cmd, []string{"--region", "us-west-2"})

	assert.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		cfg      *core.Config
		wantHTTP bool
	}{
		{&core.Config{Region: "us-east-1", Profile: "default"}, false},
		{&core.Config{Region: "us-west-2", Profile: "default", Verbose: 2}, true},
	}

	for _, tt := range tests {
		client := newClient(tt.cfg)

		assert.Equal(t, tt.cfg.Region, aws.StringValue(client.Config.Region), "Config: %#v", tt.cfg)
		gotHTTP := client.Config.LogLevel.Matches(aws.LogDebugWithHTTPBody)
		assert.Equal(t, tt.wantHTTP, gotHTTP, "Config: %#v", tt.cfg)
	}
}
