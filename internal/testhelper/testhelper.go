// Package testhelper provides helpers to build Athena API values in tests.
package testhelper

import (
	"os"
	"path/filepath"
	"reflect"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/athena"
	"gopkg.in/ini.v1"
)

// CreateRows creates an array of *athena.Row from an array of string arrays.
func CreateRows(rawRows [][]string) []*athena.Row {
	rows := make([]*athena.Row, len(rawRows))
	for i, row := range rawRows {
		r := &athena.Row{Data: make([]*athena.Datum, len(row))}
		for j, data := range row {
			r.Data[j] = new(athena.Datum).SetVarCharValue(data)
		}
		rows[i] = r
	}
	return rows
}

// CreateMetadata creates result set metadata containing the given column names.
func CreateMetadata(cols []string) *athena.ResultSetMetadata {
	md := &athena.ResultSetMetadata{ColumnInfo: make([]*athena.ColumnInfo, len(cols))}
	for i, col := range cols {
		md.ColumnInfo[i] = &athena.ColumnInfo{Name: aws.String(col), Type: aws.String("varchar")}
	}
	return md
}

// CreateStats creates query execution statistics from the given values.
func CreateStats(execTime, scannedBytes int64) *athena.QueryExecutionStatistics {
	return &athena.QueryExecutionStatistics{
		EngineExecutionTimeInMillis: aws.Int64(execTime),
		DataScannedInBytes:          aws.Int64(scannedBytes),
	}
}

// CreateResultConfig creates a result configuration pointing at loc.
func CreateResultConfig(loc string) *athena.ResultConfiguration {
	return &athena.ResultConfiguration{
		OutputLocation: aws.String(loc),
	}
}

// CreateConfigFile writes cfg as an ini config file into a new temporary
// directory and returns the directory, the file and a cleanup function.
// The section name is taken from cfg's `Section` field via reflection so that
// this package does not have to depend on the core package.
func CreateConfigFile(name string, cfg interface{}) (string, *os.File, func(), error) {
	cleanup := func() {}

	dir, err := os.MkdirTemp("", name)
	if err != nil {
		return "", nil, cleanup, err
	}
	cleanup = func() { os.RemoveAll(dir) }

	file, err := os.Create(filepath.Join(dir, "config"))
	if err != nil {
		return dir, nil, cleanup, err
	}

	section := reflect.ValueOf(cfg).Elem().FieldByName("Section").String()
	iniCfg := ini.Empty()
	sec, err := iniCfg.NewSection(section)
	if err != nil {
		return dir, file, cleanup, err
	}
	if err := sec.ReflectFrom(cfg); err != nil {
		return dir, file, cleanup, err
	}
	if _, err := iniCfg.WriteTo(file); err != nil {
		return dir, file, cleanup, err
	}

	return dir, file, cleanup, nil
}
