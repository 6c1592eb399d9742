package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTSVLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.txt")

	log, err := NewTSVLog(path)
	require.NoError(t, err)

	require.NoError(t, log.Append("nasa instagram", "https://www.instagram.com/nasa/"))
	require.NoError(t, log.Append("bad query", "ERROR: no suitable link found"))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "nasa instagram\thttps://www.instagram.com/nasa/", lines[0])
	assert.Equal(t, "bad query\tERROR: no suitable link found", lines[1])
}

func TestTSVLogAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.txt")

	log, err := NewTSVLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Append("q1", "r1"))
	require.NoError(t, log.Close())

	log, err = NewTSVLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Append("q2", "r2"))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "q1\tr1\nq2\tr2\n", string(data))
}

func TestCSVReportWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.csv")

	r, err := NewCSVReport(path)
	require.NoError(t, err)
	require.NoError(t, r.Append(ProfileRecord{
		Query:      "nasa instagram",
		ProfileURL: "https://www.instagram.com/nasa/",
		Followers:  "96.2M",
		Following:  "77",
		Posts:      "4,123",
		Bio:        "Explore the universe",
	}))
	require.NoError(t, r.Close())

	// Reopen and append another row; header must not repeat.
	r, err = NewCSVReport(path)
	require.NoError(t, err)
	require.NoError(t, r.Append(NewProfileRecord("missing profile")))
	require.NoError(t, r.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Query", "Profile URL", "Followers", "Following", "Posts", "Bio"}, rows[0])
	assert.Equal(t, "nasa instagram", rows[1][0])
	assert.Equal(t, "96.2M", rows[1][2])
	assert.Equal(t, []string{"missing profile", "N/A", "N/A", "N/A", "N/A", "N/A"}, rows[2])
}

func TestNewProfileRecordDefaults(t *testing.T) {
	rec := NewProfileRecord("q")
	assert.Equal(t, "q", rec.Query)
	for _, field := range []string{rec.ProfileURL, rec.Followers, rec.Following, rec.Posts, rec.Bio} {
		assert.Equal(t, FieldUnavailable, field)
	}
}
