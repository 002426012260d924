package workload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobFile_ValidLines_ProducesJobsInFileOrder(t *testing.T) {
	// GIVEN a job file with comments, blank lines and both separators
	input := `# arrival processing
0 5

1, 5
2	5
`
	// WHEN parsed
	jobs, err := ParseJobFile(strings.NewReader(input))

	// THEN three jobs come out in file order with sequential IDs
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	for i, j := range jobs {
		assert.Equal(t, i, j.ID)
		assert.Equal(t, float64(i), j.ArrivalTime)
		assert.Equal(t, 5.0, j.ProcessingTime)
		assert.Equal(t, 5.0, j.Remaining())
	}
}

func TestParseJobFile_MalformedInput_ReportsLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"non-numeric arrival", "0 1\nabc 2\n", "line 2"},
		{"negative processing", "0 -1\n", "negative"},
		{"missing field", "0 1\n3\n", "expected 2 fields"},
		{"too many fields", "0 1 2\n", "expected 2 fields"},
		{"infinite arrival", "Inf 1\n", "not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJobFile(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseJobFile_Empty_ReturnsNoJobs(t *testing.T) {
	jobs, err := ParseJobFile(strings.NewReader("# nothing\n\n"))
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestLoadJobFile_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 2\n1.5 3\n"), 0o644))

	jobs, err := LoadJobFile(path)

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 1.5, jobs[1].ArrivalTime)
	assert.Equal(t, 3.0, jobs[1].ProcessingTime)
}

func TestLoadJobFile_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadJobFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening job file")
}
