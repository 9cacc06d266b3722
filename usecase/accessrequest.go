package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vizuhealth/report-whisperer/schema"
)

var (
	// ErrUnauthorizedToken covers every verification failure: undecryptable
	// token, unknown request, not-yet-approved request. The causes are
	// collapsed on purpose so a client probing tokens learns nothing about
	// which stage failed.
	ErrUnauthorizedToken = errors.New("invalid or unauthorized token")

	ErrAccessRequestNotFound = errors.New("access request not found")
)

type (
	AccessRequestConfig struct {
		// Queue and DeleteCallbackURL drive the scheduled expiry task
		Queue             string
		DeleteCallbackURL string
		// ExpiryDelay is measured from the last update to the request, not
		// from its creation
		ExpiryDelay time.Duration
	}

	// AccessRequests runs the quick-share grant lifecycle:
	// pending -> approved -> deleted by the scheduled expiry task.
	AccessRequests struct {
		logger    *log.Logger
		store     PatientStore
		scheduler TaskScheduler
		cipher    *TokenCipher
		config    AccessRequestConfig
		now       func() time.Time
	}

	deleteTaskPayload struct {
		AccessRequestID string `json:"accessRequestId"`
	}
)

func NewAccessRequests(logger *log.Logger, store PatientStore, scheduler TaskScheduler, cipher *TokenCipher, config AccessRequestConfig) *AccessRequests {
	return &AccessRequests{
		logger:    logger,
		store:     store,
		scheduler: scheduler,
		cipher:    cipher,
		config:    config,
		now:       time.Now,
	}
}

// Generate creates a pending request and returns its encrypted token. The
// raw document ID never leaves the server.
func (a *AccessRequests) Generate(ctx context.Context) (string, error) {
	id := uuid.New().String()
	request := &schema.AccessRequest{
		UID:       id,
		Status:    schema.AccessRequestPending,
		CreatedAt: a.now().UTC().Format("2006-01-02 15:04:05"),
	}
	if err := a.store.CreateAccessRequest(ctx, request); err != nil {
		return "", err
	}
	return a.cipher.Encrypt(id)
}

// Approve moves a pending request to approved. Like every update to an
// access request it also arms the expiry task, so an approved-but-unused
// grant still disappears ExpiryDelay after its last write.
func (a *AccessRequests) Approve(ctx context.Context, id string) error {
	request, err := a.store.GetAccessRequest(ctx, id)
	if err != nil {
		return err
	}
	if request == nil {
		return ErrAccessRequestNotFound
	}
	if err := request.Transition(schema.AccessRequestApproved); err != nil {
		return err
	}
	if err := a.store.SaveAccessRequest(ctx, request); err != nil {
		return err
	}
	a.scheduleExpiry(ctx, id)
	return nil
}

// VerifyShareToken recovers the request ID from a bearer token and checks
// that the request is approved.
//
// The patient ID of the report URL is not cross-checked against the request:
// an approved token currently authorizes any patient's quick-share report.
// Binding a token to a patient needs a schema change.
func (a *AccessRequests) VerifyShareToken(ctx context.Context, token string) (string, error) {
	id, err := a.cipher.Decrypt(token)
	if err != nil || id == "" {
		a.logger.Printf("share token rejected: %v", err)
		return "", ErrUnauthorizedToken
	}
	request, err := a.store.GetAccessRequest(ctx, id)
	if err != nil {
		a.logger.Printf("share token rejected: %v", err)
		return "", ErrUnauthorizedToken
	}
	if request == nil || request.Status != schema.AccessRequestApproved {
		return "", ErrUnauthorizedToken
	}
	return id, nil
}

// Delete removes the request document. Safe to call twice: the scheduled
// task and a direct delete may race.
func (a *AccessRequests) Delete(ctx context.Context, id string) error {
	return a.store.DeleteAccessRequest(ctx, id)
}

// scheduleExpiry arms the deletion task. Scheduling failures are logged but
// not surfaced, the approval itself has already been persisted.
func (a *AccessRequests) scheduleExpiry(ctx context.Context, id string) {
	payload, err := json.Marshal(deleteTaskPayload{AccessRequestID: id})
	if err != nil {
		a.logger.Printf("marshal expiry payload failed id=[%s]: %v", id, err)
		return
	}
	at := a.now().Add(a.config.ExpiryDelay)
	taskID, err := a.scheduler.Schedule(ctx, a.config.Queue, a.config.DeleteCallbackURL, payload, at)
	if err != nil {
		a.logger.Printf("schedule expiry failed id=[%s]: %v", id, err)
		return
	}
	a.logger.Printf("scheduled expiry task [%s] for access request [%s]", taskID, id)
}
