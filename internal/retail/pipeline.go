// Package retail emits the OpenLineage events of a three-step retail ETL pipeline:
// load_source copies operational tables into the lake, build_dims derives the store
// and product dimensions, and build_facts builds the sales fact table.
//
// The pipeline does no data processing. Every job emits START, RUNNING and COMPLETE
// with fixed timestamps, and the COMPLETE event carries the job's datasets.
package retail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

// ErrUnknownJob is returned when a job name is not part of the pipeline.
var ErrUnknownJob = errors.New("unknown job")

// EmitCloser is the lineage client handle a job emits through.
// *client.Client satisfies it.
type EmitCloser interface {
	Emit(ctx context.Context, event *openlineage.RunEvent) error
	Close() error
}

// Pipeline runs jobs against lineage client handles obtained from Connect.
type Pipeline struct {
	// Connect opens a fresh client handle. It is called once per job run.
	Connect func() (EmitCloser, error)

	// NewRunID generates the run id of each job run. Defaults to uuid.New.
	NewRunID func() uuid.UUID

	Logger *slog.Logger
}

// NewPipeline creates a Pipeline that connects through connect.
func NewPipeline(connect func() (EmitCloser, error)) *Pipeline {
	return &Pipeline{
		Connect:  connect,
		NewRunID: uuid.New,
		Logger:   slog.Default(),
	}
}

// Run executes every job in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, job := range Jobs() {
		if _, err := p.RunJob(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

// RunNamed executes the single job called name.
func (p *Pipeline) RunNamed(ctx context.Context, name string) (uuid.UUID, error) {
	job, err := LookupJob(name)
	if err != nil {
		return uuid.Nil, err
	}

	return p.RunJob(ctx, job)
}

// RunJob emits START, RUNNING and COMPLETE for one run of job and returns its run id.
// Emission stops at the first error, which is returned wrapped with the job name.
func (p *Pipeline) RunJob(ctx context.Context, job JobSpec) (runID uuid.UUID, err error) {
	handle, err := p.Connect()
	if err != nil {
		return uuid.Nil, fmt.Errorf("job %s: failed to create lineage client: %w", job.Name, err)
	}

	defer func() {
		if closeErr := handle.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("job %s: failed to close lineage client: %w", job.Name, closeErr)
		}
	}()

	runID = p.newRunID()
	logger := p.logger().With(
		slog.String("job", job.Name),
		slog.String("run_id", runID.String()),
	)

	logger.Info("Job started")

	for _, event := range job.Events(runID) {
		if err := handle.Emit(ctx, event); err != nil {
			logger.Error("Failed to emit lineage event",
				slog.String("event_type", string(event.EventType)),
				slog.String("error", err.Error()))

			return runID, fmt.Errorf("job %s: %s event: %w", job.Name, event.EventType, err)
		}
	}

	logger.Info("Job lineage emitted",
		slog.Int("inputs", len(job.Inputs)),
		slog.Int("outputs", len(job.Outputs)))

	return runID, nil
}

func (p *Pipeline) newRunID() uuid.UUID {
	if p.NewRunID == nil {
		return uuid.New()
	}

	return p.NewRunID()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}

	return p.Logger
}
