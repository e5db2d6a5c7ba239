package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/spike"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// writeStructured encodes v as JSON or YAML. It reports false for text output.
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	default:
		return false, nil
	}
}

// errInterrupted marks a run the user interrupted; its report is still written
var errInterrupted = errors.New("run interrupted")

// finishRun writes report and fails when ctx was cancelled during the run, so
// an interrupted run exits non-zero.
func finishRun(ctx context.Context, w io.Writer, format string, report *domain.RunReport) error {
	if err := writeReport(w, format, report); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w after %s", errInterrupted, report.Duration().Round(time.Second))
	}
	return nil
}

func writeReport(w io.Writer, format string, report *domain.RunReport) error {
	if ok, err := writeStructured(w, format, report); ok || err != nil {
		return err
	}

	fmt.Fprintf(w, "Run %s\n", report.ID)
	fmt.Fprintf(w, "  Started:      %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  Wall time:    %s\n", report.Duration().Round(time.Second))
	fmt.Fprintf(w, "  CPU workers:  %d\n", report.CPUWorkerCount)
	fmt.Fprintf(w, "  Memory:       %s held of %s planned\n",
		humanize.IBytes(report.MemoryAllocatedBytes), humanize.IBytes(report.MemoryTargetBytes))
	fmt.Fprintf(w, "  Hold time:    %ds\n", report.RunDurationSeconds)
	fmt.Fprintf(w, "  Completed:    %t\n", report.Completed)
	if report.FailedAllocations > 0 {
		fmt.Fprintf(w, "  Failed allocations: %d\n", report.FailedAllocations)
	}
	if report.AbandonedWorkers > 0 {
		fmt.Fprintf(w, "  Abandoned workers:  %d\n", report.AbandonedWorkers)
	}
	return nil
}

func writePreview(w io.Writer, format string, preview *spike.Preview) error {
	if ok, err := writeStructured(w, format, preview); ok || err != nil {
		return err
	}

	c, p := preview.Capacity, preview.Plan
	fmt.Fprintf(w, "Host capacity: %d logical cores, %s memory\n", c.LogicalCores, humanize.IBytes(c.TotalMemoryBytes))
	fmt.Fprintf(w, "Plan (not executed):\n")
	fmt.Fprintf(w, "  CPU:      %d workers (%.0f%% intensity)\n", p.CPUWorkerCount, p.CPUIntensity*100)
	fmt.Fprintf(w, "  Memory:   %s target as %d x %s (%.0f%% intensity)\n",
		humanize.IBytes(p.MemoryTargetBytes), p.MemoryWorkerCount, humanize.IBytes(p.MemoryPerWorkerBytes), p.RAMIntensity*100)
	fmt.Fprintf(w, "  Duration: %s\n", p.RunDuration())
	return nil
}

func writeCapacity(w io.Writer, format string, snapshot domain.CapacitySnapshot) error {
	if ok, err := writeStructured(w, format, snapshot); ok || err != nil {
		return err
	}
	fmt.Fprintf(w, "Logical cores: %d\n", snapshot.LogicalCores)
	fmt.Fprintf(w, "Total memory:  %s (%s bytes)\n", humanize.IBytes(snapshot.TotalMemoryBytes), humanize.Comma(int64(snapshot.TotalMemoryBytes)))
	return nil
}
