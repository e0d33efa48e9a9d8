package extract

import "bytes"

// Verdict classifies fetched page content.
type Verdict int

// Classification results.
const (
	VerdictOK Verdict = iota
	VerdictBlocked
)

const defaultMinHTMLBytes = 10000

// Markers of the site's challenge/punish interstitials.
var defaultBlockMarkers = []string{
	"/_____tmd_____/punish",
	"x5sec",
	"captcha",
}

// BlockingDetector classifies fetched content as usable or blocked using
// simple signals: a body far below the size of a real result page, or known
// challenge markers. A blocked verdict tells the controller to retry the
// page with a fresh identity rather than to treat it as empty.
type BlockingDetector struct {
	minBytes int
	markers  [][]byte
}

// NewBlockingDetector builds a detector; zero/empty arguments select the
// defaults.
func NewBlockingDetector(minBytes int, markers []string) *BlockingDetector {
	if minBytes <= 0 {
		minBytes = defaultMinHTMLBytes
	}
	if len(markers) == 0 {
		markers = defaultBlockMarkers
	}
	// Classify compares against a lowercased body, so markers must be
	// lowercased too or they could never match.
	byteMarkers := make([][]byte, 0, len(markers))
	for _, m := range markers {
		if m != "" {
			byteMarkers = append(byteMarkers, bytes.ToLower([]byte(m)))
		}
	}
	return &BlockingDetector{minBytes: minBytes, markers: byteMarkers}
}

// Classify never fails; any content it cannot positively flag is ok.
func (d *BlockingDetector) Classify(body []byte) Verdict {
	if len(body) < d.minBytes {
		return VerdictBlocked
	}
	lower := bytes.ToLower(body)
	for _, marker := range d.markers {
		if bytes.Contains(lower, marker) {
			return VerdictBlocked
		}
	}
	return VerdictOK
}

// Blocked is a convenience wrapper for callers that only need the boolean.
func (d *BlockingDetector) Blocked(body []byte) bool {
	return d.Classify(body) == VerdictBlocked
}
