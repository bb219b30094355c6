// Copyright 2024, the PIMGAVIR contributors.

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// pairSpacer separates the forward and reverse mate in a
// concatenated record, ten N's so no aligner scores across the seam.
const pairSpacer = "NNNNNNNNNN"

// ErrUnpaired reports read files of different lengths.
var ErrUnpaired = errors.New("read files are not properly paired")

// SeqScanner streams one read file, FASTQ (4-line records) or
// single-line FASTA, yielding name and sequence.
type SeqScanner struct {
	scanner *bufio.Scanner
	fasta   bool
	started bool
	err     error

	Name string
	Seq  string
}

// NewSeqScanner wraps a reader.  The format is sniffed from the first
// record marker ('@' FASTQ, '>' FASTA).
func NewSeqScanner(r io.Reader) *SeqScanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)
	return &SeqScanner{scanner: scanner}
}

// Next advances to the next record, returning false at EOF or on
// error (see Err).
func (s *SeqScanner) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.scanner.Scan() {
		s.err = s.scanner.Err()
		return false
	}
	header := s.scanner.Text()
	if !s.started {
		s.started = true
		s.fasta = strings.HasPrefix(header, ">")
	}
	switch {
	case s.fasta && strings.HasPrefix(header, ">"):
		s.Name = strings.TrimPrefix(header, ">")
	case !s.fasta && strings.HasPrefix(header, "@"):
		s.Name = strings.TrimPrefix(header, "@")
	default:
		s.err = fmt.Errorf("malformed record header %q", header)
		return false
	}
	if !s.scanner.Scan() {
		s.err = fmt.Errorf("truncated record %q", s.Name)
		return false
	}
	s.Seq = s.scanner.Text()
	if s.fasta {
		return true
	}
	// FASTQ: swallow the separator and quality lines.
	for j := 0; j < 2; j++ {
		if !s.scanner.Scan() {
			s.err = fmt.Errorf("truncated record %q", s.Name)
			return false
		}
	}
	return true
}

// Err returns the first error hit while scanning.
func (s *SeqScanner) Err() error { return s.err }

// ConcatPairs streams the two mate files in lockstep and writes each
// pair as one FASTA record: the forward sequence, the N spacer, the
// reverse sequence.  Constant memory; returns the pair count.
func ConcatPairs(w io.Writer, r1, r2 io.Reader) (int, error) {
	fwd := NewSeqScanner(r1)
	rev := NewSeqScanner(r2)
	bw := bufio.NewWriter(w)

	n := 0
	for fwd.Next() {
		if !rev.Next() {
			if err := rev.Err(); err != nil {
				return n, err
			}
			return n, fmt.Errorf("%w: reverse file ended at record %d", ErrUnpaired, n+1)
		}
		name := strings.Fields(fwd.Name)[0]
		if _, err := fmt.Fprintf(bw, ">%s\n%s%s%s\n", name, fwd.Seq, pairSpacer, rev.Seq); err != nil {
			return n, err
		}
		n++
	}
	if err := fwd.Err(); err != nil {
		return n, err
	}
	if rev.Next() {
		return n, fmt.Errorf("%w: forward file ended at record %d", ErrUnpaired, n+1)
	}
	if err := rev.Err(); err != nil {
		return n, err
	}
	return n, bw.Flush()
}

// ConcatPairFiles is ConcatPairs over file paths.
func ConcatPairFiles(r1Path, r2Path, outPath string) (int, error) {
	f1, err := os.Open(r1Path)
	if err != nil {
		return 0, err
	}
	defer f1.Close()
	f2, err := os.Open(r2Path)
	if err != nil {
		return 0, err
	}
	defer f2.Close()
	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	n, err := ConcatPairs(out, f1, f2)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
