// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groblegark/oddjobs/internal/core"
	"github.com/groblegark/oddjobs/internal/metrics"
	"github.com/groblegark/oddjobs/internal/state"
)

func TestReportGauges_CountsActiveAndRunningJobs(t *testing.T) {
	st := state.New()
	st.Jobs["j1"] = &state.Job{Id: "j1", Step: "running", StepStatus: state.StepStatus{Kind: state.StepRunning}}
	st.Jobs["j2"] = &state.Job{Id: "j2", Step: "waiting", StepStatus: state.StepStatus{Kind: state.StepWaiting}}
	st.Jobs["j3"] = &state.Job{Id: "j3", Step: "done", StepStatus: state.StepStatus{Kind: state.StepCompleted}}
	st.QueueItems["q1"] = &state.QueueItem{Id: "q1", QueueName: core.QueueName("default"), Status: state.QueueItemPending}
	st.QueueItems["q2"] = &state.QueueItem{Id: "q2", QueueName: core.QueueName("default"), Status: state.QueueItemCompleted}

	reportGauges(st)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "oj_jobs_active 2")
	assert.Contains(t, body, "oj_worker_active_jobs 1")
	assert.Contains(t, body, `oj_queue_depth{queue="default"} 1`)
}
