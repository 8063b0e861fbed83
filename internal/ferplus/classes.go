package ferplus

import "github.com/pkg/errors"

// NumClasses is the number of emotion classes annotated in FER+.
const NumClasses = 8

// Classes follows the column order of the FER+ annotation CSV.
var Classes = [NumClasses]string{
	"neutral",
	"happiness",
	"surprise",
	"sadness",
	"anger",
	"disgust",
	"fear",
	"contempt",
}

type Split string

const (
	Training    Split = "Training"
	PublicTest  Split = "PublicTest"
	PrivateTest Split = "PrivateTest"
)

var ErrUnknownSplit = errors.New("unknown split")

var splitDirs = map[Split]string{
	Training:    "FER2013Train",
	PublicTest:  "FER2013Valid",
	PrivateTest: "FER2013Test",
}

// Dir is the image subdirectory holding the split.
func (s Split) Dir() (string, error) {
	d, ok := splitDirs[s]
	if !ok {
		return "", errors.Wrapf(ErrUnknownSplit, "%q", string(s))
	}
	return d, nil
}

func ParseSplit(s string) (Split, error) {
	sp := Split(s)
	if _, err := sp.Dir(); err != nil {
		return "", err
	}
	return sp, nil
}

// ClassNames returns the class names as a fresh slice.
func ClassNames() []string {
	out := make([]string, NumClasses)
	copy(out, Classes[:])
	return out
}
