package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizuhealth/report-whisperer/infrastructure"
	"github.com/vizuhealth/report-whisperer/schema"
)

var approvalTime = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func newTestAccessRequests(t *testing.T, store *infrastructure.MockPatientStore, scheduler *infrastructure.MockTaskScheduler) *AccessRequests {
	cipher, err := NewTokenCipher("unit-test-passphrase")
	require.NoError(t, err)
	requests := NewAccessRequests(testLogger, store, scheduler, cipher, AccessRequestConfig{
		Queue:             "access-requests",
		DeleteCallbackURL: "https://report.vizuhealth.test/v1/tasks/delete-access-request",
		ExpiryDelay:       30 * time.Minute,
	})
	requests.now = func() time.Time { return approvalTime }
	return requests
}

func TestTokenCipherRoundTrip(t *testing.T) {
	cipher, err := NewTokenCipher("unit-test-passphrase")
	require.NoError(t, err)

	token, err := cipher.Encrypt("9f2d1c34-aaaa-bbbb-cccc-000000000001")
	require.NoError(t, err)
	assert.NotContains(t, token, "9f2d1c34")

	id, err := cipher.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "9f2d1c34-aaaa-bbbb-cccc-000000000001", id)
}

func TestTokenCipherRejectsGarbage(t *testing.T) {
	cipher, err := NewTokenCipher("unit-test-passphrase")
	require.NoError(t, err)

	_, err = cipher.Decrypt("not-a-token")
	assert.Error(t, err)

	_, err = cipher.Decrypt("")
	assert.Error(t, err)
}

func TestTokenCipherEmptyPassphrase(t *testing.T) {
	_, err := NewTokenCipher("")
	assert.Error(t, err)
}

func TestGenerateCreatesPendingRequest(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	requests := newTestAccessRequests(t, store, scheduler)

	token, err := requests.Generate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// the token decrypts back to the stored document ID
	id, err := requests.cipher.Decrypt(token)
	require.NoError(t, err)
	stored, err := store.GetAccessRequest(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, schema.AccessRequestPending, stored.Status)
	assert.Equal(t, "2025-03-12 10:00:00", stored.CreatedAt)

	// a pending token does not authorize anything yet
	_, err = requests.VerifyShareToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorizedToken)
}

func TestApproveSchedulesExpiry(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	requests := newTestAccessRequests(t, store, scheduler)

	token, err := requests.Generate(context.Background())
	require.NoError(t, err)
	id, err := requests.cipher.Decrypt(token)
	require.NoError(t, err)

	require.NoError(t, requests.Approve(context.Background(), id))

	stored, err := store.GetAccessRequest(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, schema.AccessRequestApproved, stored.Status)

	require.Len(t, scheduler.Scheduled, 1)
	task := scheduler.Scheduled[0]
	assert.Equal(t, "access-requests", task.Queue)
	assert.Equal(t, approvalTime.Add(30*time.Minute), task.At)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, id, payload["accessRequestId"])

	// once approved the token opens the share routes
	gotID, err := requests.VerifyShareToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
}

func TestApproveUnknownRequest(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	requests := newTestAccessRequests(t, store, &infrastructure.MockTaskScheduler{})

	err := requests.Approve(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrAccessRequestNotFound)
}

func TestApproveTwiceIsRejected(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{}
	requests := newTestAccessRequests(t, store, scheduler)

	token, err := requests.Generate(context.Background())
	require.NoError(t, err)
	id, err := requests.cipher.Decrypt(token)
	require.NoError(t, err)

	require.NoError(t, requests.Approve(context.Background(), id))
	err = requests.Approve(context.Background(), id)
	require.Error(t, err)

	// the failed second approval must not arm another expiry task
	assert.Len(t, scheduler.Scheduled, 1)
}

func TestApproveSurvivesSchedulerFailure(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	scheduler := &infrastructure.MockTaskScheduler{ScheduleErr: assert.AnError}
	requests := newTestAccessRequests(t, store, scheduler)

	token, err := requests.Generate(context.Background())
	require.NoError(t, err)
	id, err := requests.cipher.Decrypt(token)
	require.NoError(t, err)

	// expiry scheduling failures are logged, not surfaced
	require.NoError(t, requests.Approve(context.Background(), id))
}

func TestVerifyShareTokenFailures(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	requests := newTestAccessRequests(t, store, &infrastructure.MockTaskScheduler{})

	_, err := requests.VerifyShareToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthorizedToken)

	// a well-formed token whose request was deleted is just as unauthorized
	token, err := requests.Generate(context.Background())
	require.NoError(t, err)
	id, err := requests.cipher.Decrypt(token)
	require.NoError(t, err)
	require.NoError(t, requests.Approve(context.Background(), id))
	require.NoError(t, requests.Delete(context.Background(), id))

	_, err = requests.VerifyShareToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorizedToken)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := infrastructure.NewMockPatientStore()
	requests := newTestAccessRequests(t, store, &infrastructure.MockTaskScheduler{})

	assert.NoError(t, requests.Delete(context.Background(), "already-gone"))
	assert.NoError(t, requests.Delete(context.Background(), "already-gone"))
}
