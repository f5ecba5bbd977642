// Package control implements the debug control surface: the Load API program-transfer protocol,
// the Control façade over the interpreter, and the event-future machinery run_until_event depends
// on.
package control

// load.go implements the three-call, type-stated page-write session programs are transferred
// through. Go has no affine types, so the type-state is enforced at runtime: PageToken carries a
// state label and misuse returns an error rather than failing to compile.

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// ChunkWords is the number of words transferred in a single SendPageChunk call. It must evenly
// divide PageWords.
const ChunkWords = 16

// PageWords is the fixed size, in words, of one loader page.
const PageWords = 256

// MaxPageIndex is the highest page index program loads may target; page 255 is reserved for MMIO.
const MaxPageIndex = 254

var (
	errLoad = errors.New("load")

	// ErrPageOutOfRange is returned starting a session for a page outside [0, MaxPageIndex].
	ErrPageOutOfRange = fmt.Errorf("%w: page out of range", errLoad)

	// ErrSessionOpen is returned starting a session while one is already open.
	ErrSessionOpen = fmt.Errorf("%w: session already open", errLoad)

	// ErrNoSession is returned sending a chunk or finishing a page with no session open.
	ErrNoSession = fmt.Errorf("%w: no session open", errLoad)

	// ErrChunkAlignment is returned when a chunk's offset isn't aligned to ChunkWords.
	ErrChunkAlignment = fmt.Errorf("%w: misaligned chunk offset", errLoad)

	// ErrChunkOutOfPage is returned when a chunk's offset falls outside the current page.
	ErrChunkOutOfPage = fmt.Errorf("%w: chunk offset out of page", errLoad)

	// ErrChunkAlreadyWritten is returned re-sending a chunk already received this session.
	ErrChunkAlreadyWritten = fmt.Errorf("%w: chunk already written", errLoad)

	// ErrMissingChunks is returned finishing a page before every chunk has been received.
	ErrMissingChunks = fmt.Errorf("%w: missing chunks", errLoad)

	// ErrChecksumMismatch is returned finishing a page whose received checksum doesn't match.
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", errLoad)

	// ErrWrongSession is returned presenting a token from a prior or different session.
	ErrWrongSession = fmt.Errorf("%w: stale or foreign token", errLoad)

	// ErrWrongState reports a Load API call out of sequence for a token's state. LoadSession's
	// methods do not return it; they check only a token's session and page.
	ErrWrongState = fmt.Errorf("%w: wrong state for token", errLoad)
)

// PageToken is a runtime-checked capability granting access to the next call in a load session.
// A token from a prior session or for another page is rejected. Its state label is not checked, so
// an earlier token from the session that is still open is accepted as well.
type PageToken struct {
	state string // "start" | "chunk"
	page  uint8
	epoch uint64
}

// LoadSession is a single, type-stated program load: start_page_write, then zero or more
// send_page_chunk calls, then finish_page_write. Only one session may be open at a time.
type LoadSession struct {
	mu sync.Mutex

	mem  *vm.Memory
	open bool
	page uint8
	seq  uint64

	received [PageWords / ChunkWords]bool
	buf      [PageWords]vm.Word
	checksum uint64
}

// NewLoadSession creates a load session that commits pages into mem.
func NewLoadSession(mem *vm.Memory) *LoadSession {
	return &LoadSession{mem: mem}
}

// StartPageWrite opens a session targeting page, recording the checksum the finished page must
// match. It fails if page is out of range or a session is already open.
func (s *LoadSession) StartPageWrite(page uint8, checksum uint64) (PageToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page > MaxPageIndex {
		return PageToken{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}

	if s.open {
		return PageToken{}, ErrSessionOpen
	}

	s.open = true
	s.page = page
	s.checksum = checksum
	s.seq++
	s.received = [PageWords / ChunkWords]bool{}
	s.buf = [PageWords]vm.Word{}

	return PageToken{state: "start", page: page, epoch: s.seq}, nil
}

// SendPageChunk writes one chunk of the open page at offset, returning a token for the next call.
func (s *LoadSession) SendPageChunk(tok PageToken, offset uint8, chunk [ChunkWords]vm.Word) (PageToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(tok); err != nil {
		return PageToken{}, err
	}

	if offset%ChunkWords != 0 {
		return PageToken{}, fmt.Errorf("%w: %d", ErrChunkAlignment, offset)
	}

	if int(offset)+ChunkWords > PageWords {
		return PageToken{}, fmt.Errorf("%w: %d", ErrChunkOutOfPage, offset)
	}

	idx := int(offset) / ChunkWords
	if s.received[idx] {
		return PageToken{}, fmt.Errorf("%w: offset %d", ErrChunkAlreadyWritten, offset)
	}

	copy(s.buf[offset:int(offset)+ChunkWords], chunk[:])
	s.received[idx] = true

	return PageToken{state: "chunk", page: s.page, epoch: s.seq}, nil
}

// FinishPageWrite validates that every chunk arrived and the checksum matches, then commits the
// page atomically. Once the token is accepted, the session closes whether the commit succeeds or
// fails.
func (s *LoadSession) FinishPageWrite(tok PageToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(tok); err != nil {
		return err
	}

	defer func() {
		s.open = false
	}()

	for _, got := range s.received {
		if !got {
			return ErrMissingChunks
		}
	}

	if sum := checksumPage(s.buf); sum != s.checksum {
		return fmt.Errorf("%w: want %#x got %#x", ErrChecksumMismatch, s.checksum, sum)
	}

	return s.mem.CommitPage(s.page, s.buf)
}

// validate confirms tok belongs to the currently open session.
func (s *LoadSession) validate(tok PageToken) error {
	if !s.open {
		return ErrNoSession
	}

	if tok.epoch != s.seq || tok.page != s.page {
		return ErrWrongSession
	}

	return nil
}

// checksumPage computes a collision-resistant, non-cryptographic digest over a page's words using
// the standard library's FNV-1a (no third-party hashing package is used anywhere in the example
// corpus this module is grounded on; see DESIGN.md).
func checksumPage(page [PageWords]vm.Word) uint64 {
	h := fnv.New64a()

	var buf [2]byte

	for _, w := range page {
		buf[0] = byte(w)
		buf[1] = byte(w >> 8)
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}
