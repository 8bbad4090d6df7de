package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhq/automata/pkg/automation"
	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/persistence/file"
	"github.com/voxhq/automata/pkg/pipeline"
)

type fakeStarter struct {
	mu      sync.Mutex
	started []string
	err     error
}

func (f *fakeStarter) Start(_ context.Context, automationID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	f.started = append(f.started, automationID)

	return fmt.Sprintf("run-%d", len(f.started)), nil
}

func (f *fakeStarter) startedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.started))
	copy(out, f.started)

	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(t *testing.T) (*Scheduler, *automation.Repository, *fakeStarter) {
	t.Helper()

	repo := automation.NewRepository(file.NewPersistence(t.TempDir()), models.ExecutionDefaults{})
	starter := &fakeStarter{}
	s := NewScheduler(repo, starter, time.Minute, testLogger())

	return s, repo, starter
}

func createScheduled(t *testing.T, repo *automation.Repository, active bool, schedule *models.ScheduleConfig) *models.Automation {
	t.Helper()

	created, err := repo.Create(context.Background(), &models.Automation{
		Name:     "Scheduled automation",
		IsActive: active,
		Trigger:  models.Trigger{Type: models.TriggerTypeSchedule, Schedule: schedule},
		Pipeline: []models.PipelineStep{
			{ID: "s1", Type: models.StepTypeAgentAction, AgentID: "summarizer", Prompt: "Summarize"},
		},
	})
	require.NoError(t, err)

	return created
}

func TestStartSyncsActiveScheduledAutomations(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	ctx := context.Background()

	active := createScheduled(t, repo, true, &models.ScheduleConfig{Frequency: models.FrequencyHourly})
	createScheduled(t, repo, false, &models.ScheduleConfig{Frequency: models.FrequencyDaily, Time: "08:00"})

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, active.ID, jobs[0].AutomationID)
	assert.True(t, jobs[0].NextRun.After(time.Now()), "next run must be in the future")
}

func TestRefreshOnActivation(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	ctx := context.Background()

	auto := createScheduled(t, repo, false, &models.ScheduleConfig{Frequency: models.FrequencyHourly})

	s.Refresh(ctx, auto.ID)
	assert.Nil(t, s.GetJob(auto.ID))

	_, err := repo.SetActive(ctx, auto.ID, true)
	require.NoError(t, err)

	s.Refresh(ctx, auto.ID)
	job := s.GetJob(auto.ID)
	require.NotNil(t, job)
	assert.True(t, job.NextRun.After(time.Now()))

	_, err = repo.SetActive(ctx, auto.ID, false)
	require.NoError(t, err)

	s.Refresh(ctx, auto.ID)
	assert.Nil(t, s.GetJob(auto.ID))
}

func TestRefreshAfterDelete(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	ctx := context.Background()

	auto := createScheduled(t, repo, true, &models.ScheduleConfig{Frequency: models.FrequencyHourly})

	s.Refresh(ctx, auto.ID)
	require.NotNil(t, s.GetJob(auto.ID))

	require.NoError(t, repo.Delete(ctx, auto.ID))

	s.Refresh(ctx, auto.ID)
	assert.Nil(t, s.GetJob(auto.ID))
}

func TestRefreshRecomputesOnTriggerEdit(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	ctx := context.Background()

	auto := createScheduled(t, repo, true, &models.ScheduleConfig{Frequency: models.FrequencyDaily, Time: "08:00"})

	s.Refresh(ctx, auto.ID)
	before := s.GetJob(auto.ID)
	require.NotNil(t, before)

	edited := *auto
	edited.Trigger = models.Trigger{
		Type:     models.TriggerTypeSchedule,
		Schedule: &models.ScheduleConfig{Frequency: models.FrequencyDaily, Time: "21:30"},
	}
	_, err := repo.Update(ctx, auto.ID, &edited)
	require.NoError(t, err)

	s.Refresh(ctx, auto.ID)
	after := s.GetJob(auto.ID)
	require.NotNil(t, after)

	assert.NotEqual(t, before.NextRun, after.NextRun)
	assert.Equal(t, 21, after.NextRun.Hour())
	assert.Equal(t, 30, after.NextRun.Minute())
}

func TestRefreshKeepsPendingRunWhenTriggerUnchanged(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	ctx := context.Background()

	auto := createScheduled(t, repo, true, &models.ScheduleConfig{Frequency: models.FrequencyHourly})

	s.Refresh(ctx, auto.ID)
	before := s.GetJob(auto.ID)
	require.NotNil(t, before)

	// A name edit must not reset the pending occurrence.
	edited := *auto
	edited.Name = "Renamed automation"
	_, err := repo.Update(ctx, auto.ID, &edited)
	require.NoError(t, err)

	s.Refresh(ctx, auto.ID)
	after := s.GetJob(auto.ID)
	require.NotNil(t, after)
	assert.Equal(t, before.NextRun, after.NextRun)
}

func TestFireDueStartsRunAndRecomputes(t *testing.T) {
	s, repo, starter := newTestScheduler(t)
	ctx := context.Background()

	auto := createScheduled(t, repo, true, &models.ScheduleConfig{Frequency: models.FrequencyHourly})

	s.Refresh(ctx, auto.ID)

	// Force the job due in the past, as if the process slept through it.
	s.mu.Lock()
	s.jobs[auto.ID].NextRun = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	s.fireDue(ctx)

	require.Eventually(t, func() bool {
		return len(starter.startedIDs()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{auto.ID}, starter.startedIDs())

	// The next run is computed from now, not from the missed timestamp.
	job := s.GetJob(auto.ID)
	require.NotNil(t, job)
	assert.True(t, job.NextRun.After(time.Now()))
}

func TestFireDueSkipsInFlightRun(t *testing.T) {
	s, repo, starter := newTestScheduler(t)
	ctx := context.Background()

	auto := createScheduled(t, repo, true, &models.ScheduleConfig{Frequency: models.FrequencyHourly})
	starter.err = pipeline.ErrAlreadyRunning

	s.Refresh(ctx, auto.ID)

	s.mu.Lock()
	s.jobs[auto.ID].NextRun = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	s.fireDue(ctx)

	// The occurrence is dropped, never queued, and the job survives.
	assert.Empty(t, starter.startedIDs())

	require.Eventually(t, func() bool {
		job := s.GetJob(auto.ID)

		return job != nil && job.NextRun.After(time.Now())
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSyncJobsDropsDeletedAutomations(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	ctx := context.Background()

	auto := createScheduled(t, repo, true, &models.ScheduleConfig{Frequency: models.FrequencyHourly})

	s.syncJobs(ctx)
	require.NotNil(t, s.GetJob(auto.ID))

	require.NoError(t, repo.Delete(ctx, auto.ID))

	s.syncJobs(ctx)
	assert.Nil(t, s.GetJob(auto.ID))
}

func TestStopIsIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
}
