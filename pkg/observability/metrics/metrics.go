package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	snapshotVersion      atomic.Int64
	snapshotPatients     atomic.Int64
	batchMalformed       atomic.Int64
	batchIneligible      atomic.Int64
	batchScoringFailures atomic.Int64
	batchDurationMs      atomic.Int64
	requestsServed       atomic.Int64
	requestsFailed       atomic.Int64
)

func Init() {}

func ObserveSnapshot(version uint64, patients, malformed, ineligible, scoringFailures int, durationMs int64) {
	snapshotVersion.Store(int64(version))
	snapshotPatients.Store(int64(patients))
	batchMalformed.Store(int64(malformed))
	batchIneligible.Store(int64(ineligible))
	batchScoringFailures.Store(int64(scoringFailures))
	batchDurationMs.Store(durationMs)
}

func ObserveRequest(failed bool) {
	requestsServed.Add(1)
	if failed {
		requestsFailed.Add(1)
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP chronicare_snapshot_version Version number of the currently served risk snapshot.\n")
	fmt.Fprintf(w, "# TYPE chronicare_snapshot_version gauge\n")
	fmt.Fprintf(w, "chronicare_snapshot_version %d\n", snapshotVersion.Load())

	fmt.Fprintf(w, "# HELP chronicare_snapshot_patients Number of scored patients in the current snapshot.\n")
	fmt.Fprintf(w, "# TYPE chronicare_snapshot_patients gauge\n")
	fmt.Fprintf(w, "chronicare_snapshot_patients %d\n", snapshotPatients.Load())

	fmt.Fprintf(w, "# HELP chronicare_batch_excluded_malformed Records excluded from the latest batch for unparsable required fields.\n")
	fmt.Fprintf(w, "# TYPE chronicare_batch_excluded_malformed gauge\n")
	fmt.Fprintf(w, "chronicare_batch_excluded_malformed %d\n", batchMalformed.Load())

	fmt.Fprintf(w, "# HELP chronicare_batch_excluded_ineligible Records excluded from the latest batch by the eligibility screen.\n")
	fmt.Fprintf(w, "# TYPE chronicare_batch_excluded_ineligible gauge\n")
	fmt.Fprintf(w, "chronicare_batch_excluded_ineligible %d\n", batchIneligible.Load())

	fmt.Fprintf(w, "# HELP chronicare_batch_scoring_failures Records the model failed to score in the latest batch.\n")
	fmt.Fprintf(w, "# TYPE chronicare_batch_scoring_failures gauge\n")
	fmt.Fprintf(w, "chronicare_batch_scoring_failures %d\n", batchScoringFailures.Load())

	fmt.Fprintf(w, "# HELP chronicare_batch_duration_milliseconds Wall time of the latest scoring batch.\n")
	fmt.Fprintf(w, "# TYPE chronicare_batch_duration_milliseconds gauge\n")
	fmt.Fprintf(w, "chronicare_batch_duration_milliseconds %d\n", batchDurationMs.Load())

	fmt.Fprintf(w, "# HELP chronicare_api_requests_total Requests served by the cohort query API since process start.\n")
	fmt.Fprintf(w, "# TYPE chronicare_api_requests_total counter\n")
	fmt.Fprintf(w, "chronicare_api_requests_total %d\n", requestsServed.Load())

	fmt.Fprintf(w, "# HELP chronicare_api_request_failures_total Requests that ended in a 5xx since process start.\n")
	fmt.Fprintf(w, "# TYPE chronicare_api_request_failures_total counter\n")
	fmt.Fprintf(w, "chronicare_api_request_failures_total %d\n", requestsFailed.Load())
}
