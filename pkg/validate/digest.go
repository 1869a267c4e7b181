package validate

import (
	"sort"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const digestAlgo = "b2"

// Digest fingerprints the report's logical content: mode, then each
// record's key, explain code, and which sides were present, in sorted
// order. Two reports over the same inputs digest identically no
// matter how they were assembled; paths and raw memory layout never
// enter the hash.
func (r *Report) Digest() string {
	rows := make([]string, 0, len(r.Records))

	for _, rec := range r.Records {
		row := rec.Key + "\x00" + rec.Explain.String() + "\x00" + presence(rec)
		rows = append(rows, row)
	}

	sort.Strings(rows)

	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}

	h.Write([]byte(r.Mode.String()))
	h.Write([]byte{0})

	for _, row := range rows {
		h.Write([]byte(row))
		h.Write([]byte{'\n'})
	}

	return digestAlgo + ":" + base58.Encode(h.Sum(nil))
}

func presence(rec Record) string {
	switch {
	case rec.Package != nil && rec.Spec != nil:
		return "ps"
	case rec.Package != nil:
		return "p-"
	default:
		return "-s"
	}
}
