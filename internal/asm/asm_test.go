package asm_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"testing"

	"github.com/sixteen-systems/lc3vm/internal/asm"
	"github.com/sixteen-systems/lc3vm/internal/log"
)

type assemblerHarness struct {
	*testing.T
}

func (t *assemblerHarness) inputStream(filename string) io.ReadCloser {
	t.Helper()

	file, err := os.Open(path.Join("testdata", filename))
	if err != nil {
		t.Fatalf("error opening %s: %s", filename, err)
	}

	return file
}

func (t *assemblerHarness) logger() *log.Logger {
	buf := bufio.NewWriter(os.Stderr)

	t.T.Cleanup(func() { buf.Flush() })

	return slog.New(
		slog.NewTextHandler(buf, log.Options),
	)
}

type asmTestCase struct {
	input         io.Reader
	inputBytes    []byte
	expected      io.Reader
	expectedHex   io.Reader
	expectedSlice []byte
	expectedErr   error
}

func (tc *asmTestCase) Run(t *assemblerHarness) {
	t.Helper()

	parser := asm.NewParser(t.logger())

	if tc.input != nil {
		parser.Parse(tc.input)
	} else {
		parser.Parse(bytes.NewReader(tc.inputBytes))
	}

	if parser.Err() != nil {
		t.Error(parser.Err())
	}

	syntax := parser.Syntax()
	symbols := parser.Symbols()
	generator := asm.NewGenerator(symbols, syntax)

	var (
		out   bytes.Buffer
		count int64
		err   error
	)

	if tc.expectedHex == nil {
		count, err = generator.WriteTo(&out)
	} else {
		bs, err := generator.Encode()
		if err != nil {
			t.Error(err.Error())
			return
		}
		c, err := out.Write(bs)
		if err != nil {
			t.Error(err.Error())
			return
		}
		count = int64(c)
	}

	t.Logf("Wrote %d bytes", count)

	if err != nil {
		t.Error(err)
	}

	var expected []byte

	if tc.expected != nil {
		expected, err = io.ReadAll(tc.expected)
		if err != nil {
			t.Error(err)
			return
		}
	} else if tc.expectedHex != nil {
		expected, err = io.ReadAll(tc.expectedHex)
		if err != nil {
			t.Error(nil)
			return
		}
	} else if tc.expectedSlice != nil {
		expected = tc.expectedSlice
	}

	if bytes.Compare(expected, out.Bytes()) != 0 {
		t.Error("bytes not equal:")

		b := out.Bytes()

		for i := 0; i < len(b) && i < len(expected); i++ {
			if b[i] != expected[i] {
				t.Errorf("\tindex: %d: %0#2x != %0#2x (%[2]q != %[3]q)", i, b[i], expected[i])
			}
		}
	}

	if tc.expectedErr != nil {
		if !errors.Is(err, tc.expectedErr) {
			t.Errorf("expected err: %[1]s (%+[1]v), got: %[2]s (%+[2]v)", tc.expectedErr, err)
		}
	}
}

// TestAssembler_Gold checks that assembling a fixture twice, independently, produces byte-for-byte
// identical object code: the generator is deterministic given the same source.
func TestAssembler_Gold(tt *testing.T) {
	t := assemblerHarness{tt}

	for _, fn := range []string{"parser6.asm", "parser7.asm"} {
		fn := fn

		t.Run(fn, func(tt *testing.T) {
			t := assemblerHarness{tt}

			assemble := func() []byte {
				t.Helper()

				parser := asm.NewParser(t.logger())
				parser.Parse(t.inputStream(fn))

				if err := parser.Err(); err != nil {
					t.Fatal(err)
				}

				generator := asm.NewGenerator(parser.Symbols(), parser.Syntax())

				bs, err := generator.Encode()
				if err != nil {
					t.Fatal(err)
				}

				return bs
			}

			first := assemble()
			second := assemble()

			if len(first) == 0 {
				t.Error("empty object code")
			}

			if !bytes.Equal(first, second) {
				t.Error("assembling the same source twice produced different object code")
			}
		})
	}
}

func TestAssembler_EdgeCases(tt *testing.T) {
	tcs := map[string]asmTestCase{
		"nil": {
			input:         nil,
			expectedSlice: nil,
			expectedErr:   nil,
		},
	}

	for name, tc := range tcs {
		tc := tc

		tt.Run(name, func(tt *testing.T) {
			t := assemblerHarness{tt}
			tc.Run(&t)
		})
	}
}
