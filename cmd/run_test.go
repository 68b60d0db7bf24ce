package cmd

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/ccakes/athenacli/core"
	bytes "github.com/ccakes/athenacli/internal/bytes"
	"github.com/ccakes/athenacli/internal/stub"
	"github.com/ccakes/athenacli/internal/testhelper"
)

// stubFileInfo is a stub of os.FileInfo which returns a fixed file mode.
type stubFileInfo struct {
	os.FileInfo
	mode os.FileMode
}

func (fi *stubFileInfo) Mode() os.FileMode { return fi.mode }

// stubStatReader is a stub of statReader with a fixed file mode.
type stubStatReader struct {
	io.Reader
	mode os.FileMode
}

func (s *stubStatReader) Stat() (os.FileInfo, error) {
	return &stubFileInfo{mode: s.mode}, nil
}

// errStatReader always fails to stat.
type errStatReader struct {
	io.Reader
}

func (s *errStatReader) Stat() (os.FileInfo, error) {
	return nil, os.ErrInvalid
}

func TestHasDataOn(t *testing.T) {
	tests := []struct {
		s        stater
		expected bool
	}{
		{&stubStatReader{mode: os.ModeCharDevice}, false},
		{&stubStatReader{mode: os.ModeNamedPipe}, true},
		{&errStatReader{}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, hasDataOn(tt.s), "Stater: %#v", tt.s)
	}
}

func TestValidateConfigForRun(t *testing.T) {
	tests := []struct {
		cfg    *core.Config
		errMsg string
	}{
		{nil, "config is nil"},
		{&core.Config{}, "`database` setting is required"},
		{&core.Config{Database: "sampledb"}, "`region` setting is required"},
		{&core.Config{Database: "sampledb", Region: "us-east-1"}, "'s3://'"},
		{&core.Config{Database: "sampledb", Region: "us-east-1", Results: "samplebucket"}, "'s3://'"},
	}

	for _, tt := range tests {
		err := validateConfigForRun(tt.cfg)

		assert.Error(t, err, "Config: %#v", tt.cfg)
		assert.Contains(t, err.Error(), tt.errMsg, "Config: %#v", tt.cfg)
	}

	valid := &core.Config{Database: "sampledb", Region: "us-east-1", Results: "s3://samplebucket/"}
	assert.NoError(t, validateConfigForRun(valid))
}

func TestRunRun(t *testing.T) {
	tests := []struct {
		args     []string
		stdin    statReader
		expected string
	}{
		{
			args:     []string{"SHOW DATABASES"},
			stdin:    &stubStatReader{mode: os.ModeCharDevice},
			expected: "Query: SHOW DATABASES;",
		},
		{
			args: []string{},
			stdin: &stubStatReader{
				Reader: strings.NewReader("SHOW DATABASES;"),
				mode:   os.ModeNamedPipe,
			},
			expected: "Query: SHOW DATABASES;",
		},
	}

	for _, tt := range tests {
		client := stub.NewClient(&stub.Result{
			ID:       "TestRunRun",
			Query:    "SHOW DATABASES",
			ExecTime: 123,
			Location: "s3://samplebucket/",
			ResultSet: athenaResultSet(nil, [][]string{
				{"sampledb"},
			}),
		})
		cfg := &core.Config{
			Database: "sampledb",
			Region:   "us-east-1",
			Results:  "s3://samplebucket/",
			Silent:   true,
		}

		var out bytes.Buffer
		err := runRun(&cobra.Command{}, tt.args, client, cfg, tt.stdin, &out)

		assert.NoError(t, err, "Args: %#v", tt.args)
		assert.Contains(t, out.String(), tt.expected, "Args: %#v", tt.args)
	}
}

func TestRunRunFromCommandFlags(t *testing.T) {
	origCommands := commands
	defer func() { commands = origCommands }()
	commands = []string{"SHOW DATABASES"}

	client := stub.NewClient(&stub.Result{
		ID:       "TestRunRunFromCommandFlags",
		Query:    "SHOW DATABASES",
		ExecTime: 123,
		Location: "s3://samplebucket/",
		ResultSet: athenaResultSet(nil, [][]string{
			{"sampledb"},
		}),
	})
	cfg := &core.Config{
		Database: "sampledb",
		Region:   "us-east-1",
		Results:  "s3://samplebucket/",
		Silent:   true,
	}

	var out bytes.Buffer
	err := runRun(&cobra.Command{}, nil, client, cfg, &stubStatReader{mode: os.ModeCharDevice}, &out)

	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Query: SHOW DATABASES;")
}

func TestRunRunValidationError(t *testing.T) {
	tests := []struct {
		cfg    *core.Config
		errMsg string
	}{
		{&core.Config{Region: "us-east-1", Results: "s3://samplebucket/"}, "database"},
		{&core.Config{Database: "sampledb", Results: "s3://samplebucket/"}, "region"},
		{&core.Config{Database: "sampledb", Region: "us-east-1"}, "results"},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		stdin := &stubStatReader{mode: os.ModeCharDevice}
		err := runRun(&cobra.Command{}, []string{"SHOW DATABASES"}, stub.NewClient(), tt.cfg, stdin, &out)

		assert.Error(t, err, "Config: %#v", tt.cfg)
		assert.Contains(t, err.Error(), tt.errMsg, "Config: %#v", tt.cfg)
	}
}

func athenaResultSet(cols []string, rows [][]string) (rs athena.ResultSet) {
	if cols != nil {
		rs.SetResultSetMetadata(testhelper.CreateMetadata(cols))
	}
	rs.SetRows(testhelper.CreateRows(rows))
	return rs
}
