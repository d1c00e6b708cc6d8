package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const (
	codePrefix = "CERT"
	codeSep    = "-"
	idPrefix   = 8
)

var ErrInvalidFormat = core.NewValidationError(errors.New("invalid certificate ID format"))

// Parts are the decoded segments of a certificate code.
type Parts struct {
	CoursePrefix  string
	LearnerPrefix string
}

// Encode returns the canonical certificate code of a (course, learner) pair:
// CERT-<first 8 chars of courseID>-<first 8 chars of learnerID>.
func Encode(courseID, learnerID string) string {
	return codePrefix + codeSep + first(courseID, idPrefix) + codeSep + first(learnerID, idPrefix)
}

// encodeHashed returns a collision-resistant code of a (course, learner) pair,
// used when the canonical code is already owned by another pair.
func encodeHashed(courseID, learnerID string) string {
	sum := sha256.Sum256([]byte(courseID + "/" + learnerID))
	h := hex.EncodeToString(sum[:])
	return codePrefix + codeSep + h[:idPrefix] + codeSep + h[idPrefix:2*idPrefix]
}

// Decode splits a certificate code into its parts.
// A code must have exactly three non-empty segments and start with CERT.
func Decode(code string) (Parts, error) {
	segs := strings.Split(strings.TrimSpace(code), codeSep)
	if len(segs) != 3 || segs[0] != codePrefix || segs[1] == "" || segs[2] == "" {
		return Parts{}, ErrInvalidFormat
	}
	return Parts{CoursePrefix: segs[1], LearnerPrefix: segs[2]}, nil
}

func first(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
