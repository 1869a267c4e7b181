package digestfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// File is a recorded set of report fingerprints, one `algo:hash label`
// line per entry, kept sorted by label. CI records a digest after a
// reviewed run and verifies later runs against it.
type File struct {
	entries []entry
}

type entry struct {
	label string
	algo  string
	hash  []byte
}

func (f *File) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	for {
		line, err := br.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}

			return err
		}

		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			continue
		}

		space := bytes.IndexByte(line, ' ')
		if space == -1 || space < colon {
			continue
		}

		hash, err := base58.Decode(string(line[colon+1 : space]))
		if err != nil {
			return errors.Wrapf(err, "bad hash for %q", bytes.TrimSpace(line[space+1:]))
		}

		f.entries = append(f.entries, entry{
			label: string(bytes.TrimSpace(line[space+1:])),
			algo:  string(line[:colon]),
			hash:  hash,
		})
	}

	// lookup binary searches, don't trust the file to be sorted
	sort.Slice(f.entries, func(i, j int) bool {
		return f.entries[i].label < f.entries[j].label
	})

	return nil
}

// Record stores a digest of the form "algo:base58hash" under a label,
// replacing any previous entry for the label.
func (f *File) Record(label, digest string) error {
	colon := strings.IndexByte(digest, ':')
	if colon == -1 {
		return errors.Errorf("digest %q has no algo prefix", digest)
	}

	hash, err := base58.Decode(digest[colon+1:])
	if err != nil {
		return errors.Wrapf(err, "digest for %q", label)
	}

	for i := range f.entries {
		if f.entries[i].label == label {
			f.entries[i].algo = digest[:colon]
			f.entries[i].hash = hash

			return nil
		}
	}

	f.entries = append(f.entries, entry{
		label: label,
		algo:  digest[:colon],
		hash:  hash,
	})

	sort.Slice(f.entries, func(i, j int) bool {
		return f.entries[i].label < f.entries[j].label
	})

	return nil
}

func (f *File) Lookup(label string) (string, bool) {
	idx := sort.Search(len(f.entries), func(i int) bool {
		return f.entries[i].label >= label
	})

	if idx == len(f.entries) || f.entries[idx].label != label {
		return "", false
	}

	e := f.entries[idx]

	return e.algo + ":" + base58.Encode(e.hash), true
}

// Verify reports whether the label is recorded with exactly this
// digest.
func (f *File) Verify(label, digest string) bool {
	have, ok := f.Lookup(label)

	return ok && have == digest
}

func (f *File) Len() int {
	return len(f.entries)
}

func (f *File) Save(w io.Writer) error {
	for _, e := range f.entries {
		_, err := fmt.Fprintf(w, "%s:%s %s\n", e.algo, base58.Encode(e.hash), e.label)
		if err != nil {
			return err
		}
	}

	return nil
}
