package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/samber/lo"

	"github.com/limaJavier/coursetabling/pkg/metrics"
	"github.com/limaJavier/coursetabling/pkg/milp"
	"github.com/limaJavier/coursetabling/pkg/model"
)

const (
	executablePath             = "../../bin/cli"
	instancesDirectory         = "../../test/instances/"
	resultsFile                = "benchmark_results.csv"
	MB                 float32 = 1024 * 1024
)

// Every instance directory holds these four tables
var instanceFiles = []string{"occupancy.csv", "courses.csv", "preferences.csv", "rooms.csv"}

type InstanceMetadata struct {
	Name        string
	Slots       int
	Rooms       int
	Courses     int
	Programs    int
	CoreCourses int
}

type RunMetrics struct {
	Outcome     string
	Variables   int64
	Constraints int64
	Objective   float64
}

type BenchmarkResult struct {
	Solver        string
	Instance      InstanceMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Run           RunMetrics
}

func main() {
	instances := getInstances()
	solvers := getSolvers()
	results := make([]BenchmarkResult, 0, len(instances)*len(solvers))

	for _, instance := range instances {
		for _, solver := range solvers {
			fmt.Printf("Benchmarking instance \"%v\" with solver \"%v\"\n", instance.Name, solver)

			duration, maxMemory, cpuPercentage, run := measure(solver, instance.Name)

			results = append(results, BenchmarkResult{
				Solver:        solver,
				Instance:      instance,
				Duration:      duration,
				Memory:        maxMemory,
				CpuPercentage: cpuPercentage,
				Run:           run,
			})
		}
	}

	toCsv(results)
}

func getInstances() []InstanceMetadata {
	entries, err := os.ReadDir(instancesDirectory)
	if err != nil {
		log.Fatalf("cannot read directory: %v", err)
	}

	instances := make([]InstanceMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		directory := filepath.Join(instancesDirectory, entry.Name())
		paths := instancePaths(directory)
		input, err := model.InputFromCSV(paths[0], paths[1], paths[2], paths[3])
		if err != nil {
			log.Fatalf("cannot parse instance %v: %v", directory, err)
		}

		instances = append(instances, InstanceMetadata{
			Name:     directory,
			Slots:    input.Grid.Len(),
			Rooms:    len(input.Grid.Rooms()),
			Courses:  len(input.Courses),
			Programs: len(input.Programs),
			CoreCourses: lo.CountBy(input.Courses, func(course model.Course) bool {
				return course.Core
			}),
		})
	}

	return instances
}

func instancePaths(directory string) []string {
	return lo.Map(instanceFiles, func(file string, _ int) string { return filepath.Join(directory, file) })
}

func getSolvers() []string {
	return milp.SolverNames
}

func measure(solver string, instance string) (duration int64, maxMemory float32, cpuPercentage int64, run RunMetrics) {
	scratch, err := os.MkdirTemp("", "coursetabling-benchmark-*")
	if err != nil {
		log.Fatalf("cannot create scratch directory: %v", err)
	}
	defer os.RemoveAll(scratch)
	metricsFile := filepath.Join(scratch, "run.prom")

	args := append([]string{"-v", executablePath}, instancePaths(instance)...)
	args = append(args, filepath.Join(scratch, "occupancy_out.csv"))
	cmd := exec.Command("/usr/bin/time", args...)
	cmd.Env = append(os.Environ(),
		"COURSETABLING_SOLVER_NAME="+solver,
		"COURSETABLING_OUTPUT_METRICSFILE="+metricsFile,
		"COURSETABLING_LOG_LEVEL=warn",
	)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	if exitCode := cmd.ProcessState.ExitCode(); exitCode != 0 && exitCode != 1 {
		log.Fatalf("an error occurred during the execution of \"cli\" at instance \"%v\" using solver \"%v\": %v\n", instance, solver, stdErr.String())
	}

	file, err := os.Open(metricsFile)
	if err != nil {
		log.Fatalf("run at instance \"%v\" using solver \"%v\" left no metrics: %v\n%v", instance, solver, err, stdErr.String())
	}
	defer file.Close()
	run, err = parseRunMetrics(file)
	if err != nil {
		log.Fatalf("cannot parse metrics of instance \"%v\" using solver \"%v\": %v", instance, solver, err)
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, run
}

// Reads the textfile the CLI dumps at the end of a run
func parseRunMetrics(reader io.Reader) (RunMetrics, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(reader)
	if err != nil {
		return RunMetrics{}, err
	}

	run := RunMetrics{Outcome: metrics.OutcomeFailed}
	gauge := func(name string) float64 {
		family, ok := families[name]
		if !ok || len(family.GetMetric()) == 0 {
			return 0
		}
		return family.GetMetric()[0].GetGauge().GetValue()
	}

	if family, ok := families["coursetabling_outcome"]; ok {
		for _, metric := range family.GetMetric() {
			if metric.GetGauge().GetValue() != 1 {
				continue
			}
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					run.Outcome = label.GetValue()
				}
			}
		}
	}
	run.Variables = int64(gauge("coursetabling_model_variables"))
	run.Constraints = int64(gauge("coursetabling_model_constraints"))
	run.Objective = gauge("coursetabling_objective")
	return run, nil
}

func toCsv(results []BenchmarkResult) {
	file, err := os.Create(resultsFile)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Solver", "Instance", "Slots", "Rooms", "Courses", "Programs", "CoreCourses", "Variables", "Constraints", "Objective", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result"}
	if err := writer.Write(header); err != nil {
		log.Panicf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		record := []string{
			result.Solver,
			result.Instance.Name,
			fmt.Sprintf("%d", result.Instance.Slots),
			fmt.Sprintf("%d", result.Instance.Rooms),
			fmt.Sprintf("%d", result.Instance.Courses),
			fmt.Sprintf("%d", result.Instance.Programs),
			fmt.Sprintf("%d", result.Instance.CoreCourses),
			fmt.Sprintf("%d", result.Run.Variables),
			fmt.Sprintf("%d", result.Run.Constraints),
			strconv.FormatFloat(result.Run.Objective, 'f', -1, 64),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			fmt.Sprintf("%d", result.CpuPercentage),
			result.Run.Outcome,
		}
		if err := writer.Write(record); err != nil {
			log.Panicf("cannot write CSV record: %v", err)
		}
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return duration
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.TrimSpace(strings.Split(line, ":")[1])
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) * 1024 / MB
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.TrimSpace(strings.Split(line, ":")[1])
	percentageStr = strings.TrimSuffix(percentageStr, "%")
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
