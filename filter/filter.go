// Package filter wraps peco so the history command can offer interactive,
// incremental selection over past query executions.
package filter

import (
	"context"
	"log"
	"strings"

	"github.com/google/btree"
	"github.com/peco/peco"
	"github.com/peco/peco/line"
	"github.com/pkg/errors"
)

// peco reports this error internally when the user confirms a selection;
// it is part of its normal exit path, not a failure.
const collectResultsErr = "collect results"

// Filter narrows a set of entries down to the ones the user picks.
type Filter interface {
	SetInput(input string)
	Run(ctx context.Context) error
	Len() int
	Each(fn func(item string) bool)
}

type pecoFilter struct {
	p *peco.Peco
}

// New returns a Filter backed by an embedded peco instance.
func New() Filter {
	p := peco.New()
	p.Argv = []string{}
	return &pecoFilter{p: p}
}

// SetInput feeds one entry per line into the filter.
func (f *pecoFilter) SetInput(input string) {
	f.p.Stdin = strings.NewReader(input)
}

// Run starts the interactive session and blocks until the user confirms
// or cancels. Confirming with nothing marked selects the line under the cursor.
func (f *pecoFilter) Run(ctx context.Context) error {
	err := f.p.Run(ctx)
	if err != nil && !strings.Contains(err.Error(), collectResultsErr) {
		return errors.Wrap(err, "error filtering entries")
	}

	s := f.p.Selection()
	if s.Len() == 0 {
		n := f.p.Location().LineNumber()
		if line, err := f.p.CurrentLineBuffer().LineAt(n); err == nil {
			log.Printf("No line is selected. Adding the current line %d\n", n)
			s.Add(line)
		}
	}
	return nil
}

// Len reports how many entries the user selected.
func (f *pecoFilter) Len() int {
	return f.p.Selection().Len()
}

// Each calls fn for every selected entry until fn returns false.
func (f *pecoFilter) Each(fn func(item string) bool) {
	f.p.Selection().Ascend(func(it btree.Item) bool {
		return fn(it.(line.Line).Output())
	})
}
