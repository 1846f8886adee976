package testutil

import (
	"strings"

	"github.com/dalemusser/evalhub/internal/app/store/groups"
	"github.com/dalemusser/evalhub/internal/app/system/codes"
	"go.uber.org/zap"
)

// cycleReader repeats a fixed byte sequence forever.
type cycleReader struct {
	b []byte
	i int
}

func (r *cycleReader) Read(p []byte) (int, error) {
	for j := range p {
		p[j] = r.b[r.i%len(r.b)]
		r.i++
	}
	return len(p), nil
}

// FixedCodeGenerator returns a generator that draws the given code every
// time. Tests use it to force collisions and to make created groups
// addressable by a known code.
func FixedCodeGenerator(code string) *codes.Generator {
	b := make([]byte, len(code))
	for i := 0; i < len(code); i++ {
		b[i] = byte(strings.IndexByte(codes.Alphabet, code[i]))
	}
	return &codes.Generator{Length: len(code), Alphabet: codes.Alphabet, Rand: &cycleReader{b: b}}
}

// Groups builds a group store over the fixture backend with the given code
// generator.
func (f *Fixtures) Groups(gen *codes.Generator) *groups.Store {
	f.t.Helper()
	return groups.New(f.Backend, f.Docs, gen, zap.NewNop())
}
