package oscillator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
)

// CloudDispatcher enqueues coupling updates as Cloud Tasks HTTP tasks,
// giving delivery durable retry/backoff and a dead-letter queue at the
// queue level instead of in the process. Falls back to a MemDispatcher
// when Cloud Tasks rejects the enqueue.
type CloudDispatcher struct {
	client    *cloudtasks.Client
	queuePath string
	url       string
	secret    string
	logger    *slog.Logger
	fallback  *MemDispatcher
}

// NewCloudDispatcher dials Cloud Tasks and wires a fallback MemDispatcher
// if fallbackWorkers > 0.
func NewCloudDispatcher(projectID, locationID, queueID, url, secret string, fallbackWorkers, queueCapacity int) (*CloudDispatcher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("oscillator: cloudtasks.NewClient: %w", err)
	}

	cd := &CloudDispatcher{
		client:    client,
		queuePath: fmt.Sprintf("projects/%s/locations/%s/queues/%s", projectID, locationID, queueID),
		url:       url,
		secret:    secret,
		logger:    slog.Default().With("component", "oscillator-cloud-dispatcher"),
	}
	if fallbackWorkers > 0 {
		cd.fallback = NewMemDispatcher(url, secret, fallbackWorkers, queueCapacity)
	}
	return cd, nil
}

// Emit creates one Cloud Task carrying the signed coupling update. The
// enqueue call is asynchronous to keep KoopmanLearner's refresh loop off
// the network round trip.
func (cd *CloudDispatcher) Emit(update *CouplingUpdate) error {
	if cd.url == "" {
		return fmt.Errorf("oscillator: no webhook_url configured")
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("oscillator: marshal coupling update: %w", err)
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"X-TORI-Event-Type": "coupling.update",
		"X-TORI-Mode-ID":    update.ModeID,
	}
	if cd.secret != "" {
		headers["X-TORI-Signature"] = "sha256=" + signPayload(payload, cd.secret)
	}

	req := &taskspb.CreateTaskRequest{
		Parent: cd.queuePath,
		Task: &taskspb.Task{
			MessageType: &taskspb.Task_HttpRequest{
				HttpRequest: &taskspb.HttpRequest{
					HttpMethod: taskspb.HttpMethod_POST,
					Url:        cd.url,
					Headers:    headers,
					Body:       payload,
				},
			},
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := cd.client.CreateTask(ctx, req); err != nil {
			cd.logger.Warn("cloud task enqueue failed", "mode_id", update.ModeID, "err", err)
			if cd.fallback != nil {
				if ferr := cd.fallback.Emit(update); ferr != nil {
					cd.logger.Warn("fallback delivery also failed", "mode_id", update.ModeID, "err", ferr)
				}
			}
		}
	}()
	return nil
}

// Shutdown closes the Cloud Tasks client and any fallback dispatcher.
func (cd *CloudDispatcher) Shutdown() {
	if cd.fallback != nil {
		cd.fallback.Shutdown()
	}
	if err := cd.client.Close(); err != nil {
		cd.logger.Warn("cloud tasks client close error", "err", err)
	}
}

var _ Dispatcher = (*CloudDispatcher)(nil)
