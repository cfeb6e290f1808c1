package retail

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

const (
	// JobNamespace is the namespace of every pipeline job.
	JobNamespace = "retail"

	// Producer is written on every event and facet the pipeline emits.
	Producer = "https://github.com/OpenLineage/OpenLineage/tree/0.0.1/client/python"
)

// Job names, in execution order.
const (
	JobLoadSource = "load_source"
	JobBuildDims  = "build_dims"
	JobBuildFacts = "build_facts"
)

// Fixed event times. RUNNING and COMPLETE share a timestamp.
var (
	StartTime    = time.Date(2021, 11, 3, 10, 53, 52, 427_000_000, time.UTC)
	RunningTime  = time.Date(2021, 11, 3, 10, 53, 53, 427_000_000, time.UTC)
	CompleteTime = RunningTime
)

// JobSpec declares one pipeline job and the datasets its COMPLETE event carries.
type JobSpec struct {
	Name    string
	Inputs  []openlineage.Dataset
	Outputs []openlineage.Dataset
}

// Job returns the OpenLineage job identity.
func (j JobSpec) Job() openlineage.Job {
	return openlineage.Job{Namespace: JobNamespace, Name: j.Name}
}

// Events builds the START, RUNNING and COMPLETE events of one run of the job.
func (j JobSpec) Events(runID uuid.UUID) []*openlineage.RunEvent {
	job := j.Job()

	return []*openlineage.RunEvent{
		openlineage.NewRunEvent(openlineage.EventTypeStart, StartTime, runID, job, Producer),
		openlineage.NewRunEvent(openlineage.EventTypeRunning, RunningTime, runID, job, Producer),
		openlineage.NewRunEvent(openlineage.EventTypeComplete, CompleteTime, runID, job, Producer).
			WithDatasets(j.Inputs, j.Outputs),
	}
}

// Jobs returns the pipeline jobs in execution order. Every call builds fresh deep copies
// of the job datasets.
func Jobs() []JobSpec {
	jobs := []JobSpec{
		{
			Name:    JobLoadSource,
			Inputs:  []openlineage.Dataset{sourceManagers, sourceStores, sourceBrands, sourceProducts, sourceSales},
			Outputs: []openlineage.Dataset{stagedManagers, stagedStores, stagedBrands, stagedProducts, stagedSales},
		},
		{
			Name:    JobBuildDims,
			Inputs:  []openlineage.Dataset{stagedManagers, stagedStores, stagedBrands, stagedProducts},
			Outputs: []openlineage.Dataset{modelStoresDim, modelProductsDim},
		},
		{
			Name:    JobBuildFacts,
			Inputs:  []openlineage.Dataset{stagedSales, modelStoresDim, modelProductsDim},
			Outputs: []openlineage.Dataset{modelSalesFacts},
		},
	}

	for i := range jobs {
		jobs[i].Inputs = openlineage.CloneDatasets(jobs[i].Inputs)
		jobs[i].Outputs = openlineage.CloneDatasets(jobs[i].Outputs)
	}

	return jobs
}

// LookupJob returns the job called name.
func LookupJob(name string) (JobSpec, error) {
	names := make([]string, 0, 3)

	for _, job := range Jobs() {
		if job.Name == name {
			return job, nil
		}

		names = append(names, job.Name)
	}

	return JobSpec{}, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownJob, name, strings.Join(names, ", "))
}
