package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccakes/athenacli/exec"
	"github.com/ccakes/athenacli/internal/testhelper"
)

func TestQueryConfig(t *testing.T) {
	cfg := &Config{
		Database:  "sampledb",
		Results:   "s3://samplebucket/",
		Workgroup: "primary",
	}

	want := &exec.QueryConfig{
		Database:  "sampledb",
		Location:  "s3://samplebucket/",
		Workgroup: "primary",
	}
	assert.Equal(t, want, cfg.QueryConfig())
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		cfg  *Config
		want *Config
	}{
		{
			cfg: &Config{
				Section:  "default",
				Profile:  "default",
				Region:   "us-east-1",
				Database: "sampledb",
				Results:  "s3://samplebucket/",
			},
			want: &Config{
				Section:  "default",
				Profile:  "default",
				Region:   "us-east-1",
				Database: "sampledb",
				Results:  "s3://samplebucket/",
			},
		},
		{
			cfg: &Config{
				Section:   "test",
				Profile:   "test",
				Region:    "us-west-2",
				Database:  "testdb",
				Results:   "s3://testbucket/",
				Workgroup: "primary",
				Format:    "csv",
				Count:     25,
				Silent:    true,
			},
			want: &Config{
				Section:   "test",
				Profile:   "test",
				Region:    "us-west-2",
				Database:  "testdb",
				Results:   "s3://testbucket/",
				Workgroup: "primary",
				Format:    "csv",
				Count:     25,
				Silent:    true,
			},
		},
	}

	for _, tt := range tests {
		_, file, cleanup, err := testhelper.CreateConfigFile("TestLoadConfigFile", tt.cfg)
		assert.NoError(t, err)
		defer cleanup()

		got := &Config{Section: tt.cfg.Section}
		err = LoadConfigFile(got, file.Name())

		assert.NoError(t, err)
		got.iniCfg = nil // Compare only the mapped fields
		assert.Equal(t, tt.want, got, "Config: %#v", tt.cfg)
	}
}

func TestLoadConfigFileError(t *testing.T) {
	cfg := &Config{
		Section:  "default",
		Database: "sampledb",
	}
	_, file, cleanup, err := testhelper.CreateConfigFile("TestLoadConfigFileError", cfg)
	assert.NoError(t, err)
	defer cleanup()

	tests := []struct {
		cfg    *Config
		path   string
		errMsg string
	}{
		{
			cfg:    nil,
			path:   file.Name(),
			errMsg: "cfg is nil",
		},
		{
			cfg:    &Config{},
			path:   file.Name(),
			errMsg: "section name is empty",
		},
		{
			cfg:    &Config{Section: "default"},
			path:   filepath.Join(os.TempDir(), "no_existent_config"),
			errMsg: "failed to load config file",
		},
	}

	for _, tt := range tests {
		err := LoadConfigFile(tt.cfg, tt.path)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), tt.errMsg, "Config: %#v, Path: %s", tt.cfg, tt.path)
	}
}

func TestLoadConfigFileSectionError(t *testing.T) {
	cfg := &Config{
		Section:  "default",
		Database: "sampledb",
	}
	_, file, cleanup, err := testhelper.CreateConfigFile("TestLoadConfigFileSectionError", cfg)
	assert.NoError(t, err)
	defer cleanup()

	got := &Config{Section: "no_existent_section"}
	err = LoadConfigFile(got, file.Name())

	assert.Error(t, err)
	serr, ok := err.(*SectionError)
	assert.True(t, ok, "error is %#v", err)
	assert.Equal(t, "no_existent_section", serr.Section)
	assert.Equal(t, file.Name(), serr.Path)
}
