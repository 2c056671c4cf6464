package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmazer/wayfarer/pkg/adapters/memory"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleRun() *domain.RunResult {
	return &domain.RunResult{
		RunID:          "run-1",
		CombinedResult: "# Goa\nCall the host at +91 98765 43210 or mail asha@example.com before 2025-03-14.",
		ExecutionSummary: &domain.ExecutionSummary{
			RunID:       "run-1",
			TotalBudget: 50000,
			Currency:    "INR",
			Warnings:    []string{"contact asha@example.com"},
		},
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := mw(underlying)

	run := sampleRun()
	require.NoError(t, store.Save(ctx, run))

	stored, err := underlying.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.NotContains(t, stored.CombinedResult, "Goa")
	assert.Contains(t, stored.CombinedResult, "enc:v1:")
	assert.Nil(t, stored.ExecutionSummary)
	assert.False(t, stored.Failed())

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.CombinedResult, loaded.CombinedResult)
	assert.Equal(t, run.ExecutionSummary.TotalBudget, loaded.ExecutionSummary.TotalBudget)
	assert.True(t, run.CreatedAt.Equal(loaded.CreatedAt))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}

func TestEncryptionMiddleware_FailedRunStaysVisible(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	require.NoError(t, mw(underlying).Save(ctx, &domain.RunResult{RunID: "bad", Error: "completion service unavailable"}))

	stored, err := underlying.Load(ctx, "bad")
	require.NoError(t, err)
	assert.True(t, stored.Failed())
	assert.NotContains(t, stored.Error, "completion")
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldMW, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, oldMW(underlying).Save(ctx, sampleRun()))

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := rotated(underlying).Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, sampleRun().CombinedResult, loaded.CombinedResult)

	wrong, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = wrong(underlying).Load(ctx, "run-1")
	assert.ErrorContains(t, err, "decryption failed")
}

func TestEncryptionMiddleware_PlainRunRejected(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, sampleRun()))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(underlying).Load(ctx, "run-1")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = mw(underlying).Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestNewEncryptionMiddleware_KeyLength(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(" " + base64.StdEncoding.EncodeToString(key) + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey("not base64!")
	assert.Error(t, err)
	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}

func TestRedactMiddleware_Masking(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewRedactMiddleware(middleware.DefaultRedactPatterns)
	require.NoError(t, err)

	run := sampleRun()
	require.NoError(t, mw(underlying).Save(ctx, run))

	// Caller's result untouched.
	assert.Contains(t, run.CombinedResult, "asha@example.com")
	assert.Equal(t, []string{"contact asha@example.com"}, run.ExecutionSummary.Warnings)

	stored, err := underlying.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "# Goa\nCall the host at *** or mail *** before 2025-03-14.", stored.CombinedResult)
	assert.Equal(t, []string{"contact ***"}, stored.ExecutionSummary.Warnings)
}

func TestRedactMiddleware_BarePhoneNumber(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewRedactMiddleware(middleware.DefaultRedactPatterns)
	require.NoError(t, err)

	require.NoError(t, mw(underlying).Save(ctx, &domain.RunResult{RunID: "r", Error: "callback 9876543210 failed, budget 30000"}))
	stored, err := underlying.Load(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "callback *** failed, budget 30000", stored.Error)
}

func TestNewRedactMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_RedactsBeforeEncrypting(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	redact, err := middleware.NewRedactMiddleware(middleware.DefaultRedactPatterns)
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, redact, encrypt)
	require.NoError(t, store.Save(ctx, sampleRun()))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.NotContains(t, loaded.CombinedResult, "asha@example.com")
	assert.Contains(t, loaded.CombinedResult, "2025-03-14")
}
