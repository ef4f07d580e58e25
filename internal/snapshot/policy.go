// Package snapshot decides whether a backup run has to write a new container
// and, when it does, rebuilds the container from the complete current file
// set.
package snapshot

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
	"github.com/0xRadioAc7iv/go-aletheia/internal/checksum"
)

// File is one candidate for the snapshot.
type File struct {
	LogicalPath string // Portable key the file is stored under
	SourcePath  string // Absolute path on this machine
}

// Outcome is what a run did to the container.
type Outcome int

const (
	OutcomeNothingToBackUp Outcome = iota // Empty file set, container untouched
	OutcomeUnchanged                      // Every file matches the prior container
	OutcomeWritten                        // A new container replaced the prior one
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothingToBackUp:
		return "nothing_to_back_up"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeWritten:
		return "written"
	default:
		return "unknown"
	}
}

// Result summarizes a run.
type Result struct {
	Outcome     Outcome
	Changed     []string // Logical paths that were new or differed from the prior container
	Entries     int      // Entries in the container after the run
	ArchiveSize int64    // Size of the written container, zero unless Outcome is OutcomeWritten
	PriorUsable bool     // Whether a prior container was found and opened
}

// Hasher returns the content checksum of the file at path.
type Hasher func(path string) (string, error)

// Policy compares current files against the prior container of a subject.
type Policy struct {
	Hash Hasher
	Log  *logrus.Entry
}

// New returns a policy hashing files with BLAKE3.
func New(log *logrus.Entry) *Policy {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Policy{Hash: checksum.File, Log: log}
}

// Run backs up files for subject into the container at archivePath.
//
// A prior container that cannot be opened is ignored and the run proceeds as a
// first backup. When any file is new or changed, every file is written into a
// fresh container that replaces the prior one wholesale.
func (p *Policy) Run(subject, archivePath string, files []File) (*Result, error) {
	if len(files) == 0 {
		return &Result{Outcome: OutcomeNothingToBackUp}, nil
	}

	prior, usable := p.priorChecksums(archivePath)
	result := &Result{PriorUsable: usable}

	writer := archive.NewWriter(subject, archivePath)
	changed := make(map[string]struct{})

	for _, f := range files {
		sum, err := p.Hash(f.SourcePath)
		if err != nil {
			return nil, errors.Wrapf(err, "hash %s", f.SourcePath)
		}

		if existing, ok := prior[f.LogicalPath]; !ok || existing != sum {
			if _, seen := changed[f.LogicalPath]; !seen {
				changed[f.LogicalPath] = struct{}{}
				result.Changed = append(result.Changed, f.LogicalPath)
			}
		}

		writer.AddEntry(f.LogicalPath, f.SourcePath, sum)
	}

	if len(result.Changed) == 0 {
		result.Outcome = OutcomeUnchanged
		result.Entries = len(prior)
		p.Log.Debugf("no changes for %s", subject)
		return result, nil
	}

	if err := writer.Finalize(); err != nil {
		return nil, errors.Wrap(err, "write archive")
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "stat written archive")
	}

	result.Outcome = OutcomeWritten
	result.Entries = writer.Len()
	result.ArchiveSize = info.Size()

	p.Log.WithField("changed", len(result.Changed)).Debugf("rebuilt archive for %s", subject)

	return result, nil
}

// priorChecksums returns the checksums recorded in the container at path. The
// reader is closed before returning so the writer can truncate the file.
func (p *Policy) priorChecksums(path string) (map[string]string, bool) {
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}

	r, err := archive.Open(path)
	if err != nil {
		p.Log.WithError(err).Warnf("ignoring unusable previous archive %s", path)
		return nil, false
	}
	defer r.Close()

	sums := make(map[string]string)
	for _, e := range r.Entries() {
		if _, ok := sums[e.LogicalPath]; !ok {
			sums[e.LogicalPath] = e.Checksum
		}
	}
	return sums, true
}
