package vm

import (
	"strings"
	"testing"

	"github.com/sixteen-systems/lc3vm/internal/log"
)

func NewTestHarness(t *testing.T) *testHarness {
	t.Parallel()
	th := &testHarness{T: t}
	th.log = log.NewFormattedLogger(th)

	return th
}

type testHarness struct {
	*testing.T
	log *log.Logger
}

func (t *testHarness) Logger() *log.Logger {
	return t.log
}

func (t *testHarness) Make() *LC3 {
	opts := []OptionFn{
		WithLogger(t.log),
		WithSystemContext(),
	}

	return New(opts...)
}

func (t *testHarness) Write(b []byte) (n int, err error) {
	t.T.Helper()
	t.T.Log(strings.TrimSuffix(string(b), "\n"))

	return len(b), nil
}
