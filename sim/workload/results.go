package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/dispatch-sim/sim"
)

// ResultsHeader captures run metadata written next to a results CSV.
type ResultsHeader struct {
	Version    int     `yaml:"results_version"`
	Mode       string  `yaml:"mode"` // "fast-forward" or "real-time"
	Policy     string  `yaml:"policy"`
	NumServers int     `yaml:"num_servers"`
	Seed       int64   `yaml:"seed"`
	TimeUnit   string  `yaml:"time_unit,omitempty"` // real-time only
	CreatedAt  string  `yaml:"created_at,omitempty"`
	MeanWait   float64 `yaml:"mean_wait"`
	Makespan   float64 `yaml:"makespan"`
}

// JobResult is one row of a results CSV: a job's input and its outcome.
// Server is -1 for a job that was never dispatched.
type JobResult struct {
	JobID          int
	Arrival        float64
	Processing     float64
	Server         int
	StartTime      float64
	CompletionTime float64
	Wait           float64
	Completed      bool
}

// Results combines header and rows for a complete run.
type Results struct {
	Header ResultsHeader
	Jobs   []JobResult
}

// createResultsFile opens the CSV destination; tests replace it to inject I/O failures.
var createResultsFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

var resultsColumns = []string{
	"job_id", "arrival", "processing", "server",
	"start_time", "completion_time", "wait", "completed",
}

// NewJobResults builds one row per job in the given order.
func NewJobResults(jobs []*sim.Job) []JobResult {
	out := make([]JobResult, len(jobs))
	for i, j := range jobs {
		server, ok := j.AssignedServer()
		if !ok {
			server = -1
		}
		out[i] = JobResult{
			JobID:          j.ID,
			Arrival:        j.ArrivalTime,
			Processing:     j.ProcessingTime,
			Server:         server,
			StartTime:      j.StartTime,
			CompletionTime: j.CompletionTime,
			Wait:           j.WaitTime(),
			Completed:      j.IsComplete(),
		}
	}
	return out
}

// ExportResults writes the header (YAML) and the rows (CSV) to separate files.
// Times use the shortest exact float formatting so a reload is lossless.
func ExportResults(header *ResultsHeader, rows []JobResult, headerPath, dataPath string) error {
	headerData, err := yaml.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshaling results header")
	}
	if err := os.WriteFile(headerPath, headerData, 0644); err != nil {
		return errors.Wrap(err, "writing results header")
	}

	file, err := createResultsFile(dataPath)
	if err != nil {
		return errors.Wrap(err, "creating results file")
	}
	if err := writeResultRows(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "closing results file")
}

func writeResultRows(w io.Writer, rows []JobResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(resultsColumns); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}
	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.JobID),
			formatTime(r.Arrival),
			formatTime(r.Processing),
			strconv.Itoa(r.Server),
			formatTime(r.StartTime),
			formatTime(r.CompletionTime),
			formatTime(r.Wait),
			strconv.FormatBool(r.Completed),
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "writing CSV row for job %d", r.JobID)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flushing results")
}

// LoadResults reads a results header (YAML) and rows (CSV).
func LoadResults(headerPath, dataPath string) (*Results, error) {
	headerData, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading results header")
	}
	var header ResultsHeader
	if err := yaml.Unmarshal(headerData, &header); err != nil {
		return nil, errors.Wrap(err, "parsing results header")
	}

	rows, err := LoadResultRows(dataPath)
	if err != nil {
		return nil, err
	}
	return &Results{Header: header, Jobs: rows}, nil
}

// LoadResultRows reads the rows of a results CSV without its header file.
func LoadResultRows(dataPath string) ([]JobResult, error) {
	file, err := os.Open(dataPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening results data")
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, errors.Wrap(err, "reading CSV header")
	}

	var rows []JobResult
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "reading CSV row at line %d", line)
		}
		if len(row) < len(resultsColumns) {
			return nil, errors.Errorf("line %d: row has %d columns, expected %d", line, len(row), len(resultsColumns))
		}
		r, err := parseJobResult(row)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rows = append(rows, *r)
	}
	return rows, nil
}

// ReplayJobs rebuilds fresh, undispatched jobs from result rows so the same
// sequence can be run under another policy or pool size.
func ReplayJobs(rows []JobResult) []*sim.Job {
	jobs := make([]*sim.Job, len(rows))
	for i, r := range rows {
		jobs[i] = sim.NewJob(r.JobID, r.Arrival, r.Processing)
	}
	return jobs
}

func parseJobResult(row []string) (*JobResult, error) {
	var r JobResult
	var err error
	if r.JobID, err = strconv.Atoi(row[0]); err != nil {
		return nil, fmt.Errorf("job_id: %w", err)
	}
	if r.Server, err = strconv.Atoi(row[3]); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if r.Completed, err = strconv.ParseBool(row[7]); err != nil {
		return nil, fmt.Errorf("completed: %w", err)
	}
	floats := []struct {
		col int
		dst *float64
	}{
		{1, &r.Arrival}, {2, &r.Processing}, {4, &r.StartTime}, {5, &r.CompletionTime}, {6, &r.Wait},
	}
	for _, f := range floats {
		if *f.dst, err = parseTime(row[f.col]); err != nil {
			return nil, fmt.Errorf("%s: %w", resultsColumns[f.col], err)
		}
	}
	return &r, nil
}

func formatTime(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
