package infrastructure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// TaskSchedulerClient talks to the task scheduler REST API. A task is a
// deferred HTTP POST: the scheduler calls back the given url with the given
// payload at the requested time.
type TaskSchedulerClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

type scheduleTaskRequest struct {
	URL          string `json:"url"`
	Body         string `json:"body"`
	ScheduleTime string `json:"scheduleTime"`
}

type scheduleTaskResponse struct {
	Name string `json:"name"`
}

func NewTaskSchedulerClient(baseURL string, logger *log.Logger) *TaskSchedulerClient {
	return &TaskSchedulerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *TaskSchedulerClient) Schedule(ctx context.Context, queue string, url string, payload []byte, at time.Time) (string, error) {
	body, err := json.Marshal(scheduleTaskRequest{
		URL:          url,
		Body:         base64.StdEncoding.EncodeToString(payload),
		ScheduleTime: at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling task request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/queues/%s/tasks", c.baseURL, queue)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("scheduling task on queue=[%s]: %w", queue, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("scheduling task on queue=[%s]: status %d: %s", queue, res.StatusCode, msg)
	}

	var task scheduleTaskResponse
	if err := json.NewDecoder(res.Body).Decode(&task); err != nil {
		return "", fmt.Errorf("decoding task response: %w", err)
	}
	if task.Name == "" {
		return "", fmt.Errorf("scheduler returned empty task name for queue=[%s]", queue)
	}
	return task.Name, nil
}

// DeleteTask removes a scheduled task. A task that no longer exists is not
// an error, it may already have fired.
func (c *TaskSchedulerClient) DeleteTask(ctx context.Context, taskID string) error {
	endpoint := fmt.Sprintf("%s/v1/tasks/%s", c.baseURL, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deleting task=[%s]: %w", taskID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		c.logger.Printf("task %s already gone, nothing to delete", taskID)
		return nil
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		return fmt.Errorf("deleting task=[%s]: status %d", taskID, res.StatusCode)
	}
	return nil
}
