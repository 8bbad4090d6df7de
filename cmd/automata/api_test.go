package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voxhq/automata/pkg/automation"
	"github.com/voxhq/automata/pkg/mocks"
	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/persistence/file"
	"github.com/voxhq/automata/pkg/pipeline"
	"github.com/voxhq/automata/pkg/scheduler"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	repository := automation.NewRepository(file.NewPersistence(t.TempDir()), models.ExecutionDefaults{})

	agent := &mocks.MockAgentInvoker{}
	agent.On("Invoke", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("SUMMARY", nil).Maybe()

	vault := &mocks.MockVaultStore{}
	vault.On("Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()

	executor := pipeline.NewExecutor(agent, vault, &mocks.MockIntegrationGateway{}, pipeline.Config{}, slog.Default())

	runner := pipeline.NewRunner(repository, executor, &mocks.RecordingEventBus{}, slog.Default())
	t.Cleanup(runner.Shutdown)

	sched := scheduler.NewScheduler(repository, runner, time.Minute, slog.Default())

	return newApp(repository, runner, sched)
}

func postAutomation(t *testing.T, app *fiber.App, auto models.Automation) models.Automation {
	t.Helper()

	payload, err := json.Marshal(auto)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/automations/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Automation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	return created
}

func manualAutomation(name string) models.Automation {
	return models.Automation{
		Name:    name,
		Trigger: models.Trigger{Type: models.TriggerTypeManual},
		Pipeline: []models.PipelineStep{
			{ID: "s1", Type: models.StepTypeAgentAction, AgentID: "summarizer", Prompt: "Summarize today"},
		},
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_ListAutomations_Empty(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/automations/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded struct {
		Automations []models.Automation `json:"automations"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Empty(t, decoded.Automations)
}

func TestAPI_CreateAndGetAutomation(t *testing.T) {
	app := setupTestApp(t)

	created := postAutomation(t, app, manualAutomation("Morning digest"))
	assert.NotEmpty(t, created.ID)

	req := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded models.Automation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loaded))
	assert.Equal(t, "Morning digest", loaded.Name)
}

func TestAPI_CreateAutomation_InvalidName(t *testing.T) {
	app := setupTestApp(t)

	payload, err := json.Marshal(manualAutomation("ab"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/automations/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetAutomation_NotFound(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/automations/no-such-id", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UpdateAutomation(t *testing.T) {
	app := setupTestApp(t)

	created := postAutomation(t, app, manualAutomation("Morning digest"))

	updated := manualAutomation("Evening digest")
	payload, err := json.Marshal(updated)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/automations/"+created.ID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded models.Automation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, created.ID, decoded.ID)
	assert.Equal(t, "Evening digest", decoded.Name)
}

func TestAPI_DeleteAutomation(t *testing.T) {
	app := setupTestApp(t)

	created := postAutomation(t, app, manualAutomation("Short lived"))

	req := httptest.NewRequest(http.MethodDelete, "/automations/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getReq := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID, nil)
	getResp, err := app.Test(getReq)
	require.NoError(t, err)

	defer getResp.Body.Close()

	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestAPI_ActivateRejectsEmptyPipeline(t *testing.T) {
	app := setupTestApp(t)

	draft := manualAutomation("No steps yet")
	draft.Pipeline = nil
	created := postAutomation(t, app, draft)

	req := httptest.NewRequest(http.MethodPost, "/automations/"+created.ID+"/activate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ActivationControlsScheduledJob(t *testing.T) {
	app := setupTestApp(t)

	auto := manualAutomation("Hourly digest")
	auto.Trigger = models.Trigger{
		Type:     models.TriggerTypeSchedule,
		Schedule: &models.ScheduleConfig{Frequency: models.FrequencyHourly},
	}
	created := postAutomation(t, app, auto)

	jobReq := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/job", nil)
	jobResp, err := app.Test(jobReq)
	require.NoError(t, err)
	jobResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, jobResp.StatusCode)

	activateReq := httptest.NewRequest(http.MethodPost, "/automations/"+created.ID+"/activate", nil)
	activateResp, err := app.Test(activateReq)
	require.NoError(t, err)
	activateResp.Body.Close()
	require.Equal(t, http.StatusOK, activateResp.StatusCode)

	jobResp, err = app.Test(httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/job", nil))
	require.NoError(t, err)

	defer jobResp.Body.Close()

	require.Equal(t, http.StatusOK, jobResp.StatusCode)

	var job models.ScheduledJob
	require.NoError(t, json.NewDecoder(jobResp.Body).Decode(&job))
	assert.Equal(t, created.ID, job.AutomationID)
	assert.True(t, job.NextRun.After(time.Now()))

	deactivateReq := httptest.NewRequest(http.MethodPost, "/automations/"+created.ID+"/deactivate", nil)
	deactivateResp, err := app.Test(deactivateReq)
	require.NoError(t, err)
	deactivateResp.Body.Close()
	require.Equal(t, http.StatusOK, deactivateResp.StatusCode)

	jobResp, err = app.Test(httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/job", nil))
	require.NoError(t, err)
	jobResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, jobResp.StatusCode)
}

func TestAPI_RunAutomation(t *testing.T) {
	app := setupTestApp(t)

	created := postAutomation(t, app, manualAutomation("Run me"))

	req := httptest.NewRequest(http.MethodPost, "/automations/"+created.ID+"/run", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var decoded struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.NotEmpty(t, decoded.RunID)

	require.Eventually(t, func() bool {
		stateResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/run", nil))
		if err != nil {
			return false
		}

		defer stateResp.Body.Close()

		if stateResp.StatusCode != http.StatusOK {
			return false
		}

		var state models.RunState
		if err := json.NewDecoder(stateResp.Body).Decode(&state); err != nil {
			return false
		}

		return state.Status == models.RunStatusDone
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAPI_StopWithoutRun(t *testing.T) {
	app := setupTestApp(t)

	created := postAutomation(t, app, manualAutomation("Nothing running"))

	req := httptest.NewRequest(http.MethodPost, "/automations/"+created.ID+"/stop", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RunStateNotFound(t *testing.T) {
	app := setupTestApp(t)

	created := postAutomation(t, app, manualAutomation("Never ran"))

	req := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/run", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
