package workload

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/inference-sim/dispatch-sim/sim"
)

// LoadJobFile reads a plain-text job file. See ParseJobFile for the format.
func LoadJobFile(path string) ([]*sim.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening job file")
	}
	defer f.Close()
	return ParseJobFile(f)
}

// ParseJobFile parses one job per line: "<arrival> <processing>", separated by
// whitespace or a comma. Blank lines and lines starting with '#' are skipped.
// Non-numeric, non-finite or negative values are rejected with the offending
// line number. Job IDs follow file order.
func ParseJobFile(r io.Reader) ([]*sim.Job, error) {
	var jobs []*sim.Job
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(fields) != 2 {
			return nil, errors.Errorf("line %d: expected 2 fields (arrival processing), got %d", lineNo, len(fields))
		}
		arrival, err := parseTime(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: arrival", lineNo)
		}
		processing, err := parseTime(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: processing", lineNo)
		}
		jobs = append(jobs, sim.NewJob(len(jobs), arrival, processing))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading job file")
	}
	return jobs, nil
}

func parseTime(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, errors.Errorf("%q is not a number", field)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("%q is not finite", field)
	}
	if v < 0 {
		return 0, errors.Errorf("%q is negative", field)
	}
	return v, nil
}
