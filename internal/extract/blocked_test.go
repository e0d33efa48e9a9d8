package extract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func bigPage(filler string) []byte {
	page := []byte("<html><body>" + filler + "</body></html>")
	return append(page, bytes.Repeat([]byte("x"), 12000)...)
}

func TestClassifyOKPage(t *testing.T) {
	t.Parallel()

	d := NewBlockingDetector(0, nil)
	require.Equal(t, VerdictOK, d.Classify(bigPage("lots of products")))
	require.False(t, d.Blocked(bigPage("lots of products")))
}

func TestClassifyShortBodyIsBlocked(t *testing.T) {
	t.Parallel()

	d := NewBlockingDetector(0, nil)
	require.Equal(t, VerdictBlocked, d.Classify([]byte("<html></html>")))
}

func TestClassifyChallengeMarkers(t *testing.T) {
	t.Parallel()

	d := NewBlockingDetector(0, nil)
	for _, marker := range []string{"/_____tmd_____/punish", "x5sec", "CAPTCHA"} {
		require.Equal(t, VerdictBlocked, d.Classify(bigPage(marker)), marker)
	}
}

func TestClassifyCustomThresholdAndMarkers(t *testing.T) {
	t.Parallel()

	d := NewBlockingDetector(5, []string{"access denied"})
	require.Equal(t, VerdictOK, d.Classify([]byte("hello world")))
	require.Equal(t, VerdictBlocked, d.Classify([]byte("ACCESS DENIED: go away")))
	// Default markers are replaced, not appended.
	require.Equal(t, VerdictOK, d.Classify([]byte("x5sec x5sec x5sec")))
}

func TestClassifyUppercaseConfiguredMarker(t *testing.T) {
	t.Parallel()

	d := NewBlockingDetector(5, []string{"Access Denied"})
	require.Equal(t, VerdictBlocked, d.Classify([]byte("access denied: go away")))
	require.Equal(t, VerdictBlocked, d.Classify([]byte("ACCESS DENIED: go away")))
}
