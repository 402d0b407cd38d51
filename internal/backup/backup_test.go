package backup

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jmcampos/despensa/internal/database"
	"github.com/jmcampos/despensa/internal/model"
	"github.com/jmcampos/despensa/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func TestManagerStateLifecycle(t *testing.T) {
	// Without S3 config -> disabled
	m := NewManager(Config{}, nil, nil, nil, nil)
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	// With S3 config -> idle
	m2 := NewManager(Config{
		S3: S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	}, nil, nil, nil, nil)
	if m2.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m2.Status().State, StateIdle)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(Config{
		S3: S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	}, nil, nil, nil, cb)

	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(Config{
		S3: S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	}, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerCachedKey(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil)

	if m.HasCachedKey() {
		t.Error("expected no cached key")
	}

	m.CacheKey("passphrase", []byte("salt1234salt1234"))

	if !m.HasCachedKey() {
		t.Error("expected cached key")
	}
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil)

	ctx := context.Background()
	m.Start(ctx) // should be a no-op for disabled state

	// Stop should not block
	m.Stop()
}

// setupBackupEnv creates a real on-disk database plus stores and a manager
// wired to a mock S3 client.
func setupBackupEnv(t *testing.T) (*Manager, *mockS3Client, *store.BackupStore) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "despensa.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bs := store.NewBackupStore(db)
	ss := store.NewSettingsStore(db)

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if err := ss.Set("backup_passphrase_salt", hex.EncodeToString(salt)); err != nil {
		t.Fatalf("store salt: %v", err)
	}

	m := NewManager(Config{
		S3:     S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		DBPath: dbPath,
	}, db, bs, ss, nil)

	mock := newMockS3()
	m.client = mock

	return m, mock, bs
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	m, mock, bs := setupBackupEnv(t)

	id, err := m.RunNow(context.Background(), "mi-contraseña-segura")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	record, err := bs.GetByID(id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record == nil {
		t.Fatal("backup record not found")
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", record.Status, model.BackupStatusCompleted)
	}
	if record.SizeBytes == 0 {
		t.Error("expected non-zero backup size")
	}

	mock.mu.Lock()
	data, ok := mock.objects[record.S3Key]
	mock.mu.Unlock()
	if !ok {
		t.Fatalf("object %q not uploaded", record.S3Key)
	}
	if len(data) <= saltLen+nonceLen {
		t.Errorf("uploaded object too small to be an encrypted snapshot: %d bytes", len(data))
	}
	// Ciphertext must not start with the SQLite magic
	if bytes.HasPrefix(data[saltLen+nonceLen:], []byte("SQLite format 3")) {
		t.Error("uploaded snapshot is not encrypted")
	}

	if m.Status().State != StateIdle {
		t.Errorf("state after backup = %q, want %q", m.Status().State, StateIdle)
	}
	if m.Status().LastBackup == nil {
		t.Error("expected LastBackup to be set")
	}
}

func TestDownloadStreamsUploadedObject(t *testing.T) {
	m, mock, bs := setupBackupEnv(t)

	id, err := m.RunNow(context.Background(), "mi-contraseña-segura")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	body, size, err := m.Download(context.Background(), id)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if int64(len(got)) != size {
		t.Errorf("size = %d, want %d", size, len(got))
	}

	record, _ := bs.GetByID(id)
	mock.mu.Lock()
	want := mock.objects[record.S3Key]
	mock.mu.Unlock()
	if !bytes.Equal(got, want) {
		t.Error("downloaded bytes differ from uploaded object")
	}
}

func TestDownloadUnknownBackup(t *testing.T) {
	m, _, _ := setupBackupEnv(t)

	if _, _, err := m.Download(context.Background(), 999); err == nil {
		t.Fatal("expected error for unknown backup")
	}
}

func TestCleanupDeletesExpiredObjects(t *testing.T) {
	m, mock, _ := setupBackupEnv(t)

	id, err := m.RunNow(context.Background(), "mi-contraseña-segura")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	_ = id

	mock.mu.Lock()
	uploaded := len(mock.objects)
	mock.mu.Unlock()
	if uploaded != 1 {
		t.Fatalf("expected 1 uploaded object, got %d", uploaded)
	}

	// Negative retention places the cutoff in the future, expiring everything.
	if err := m.Cleanup(context.Background(), -1); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	mock.mu.Lock()
	remaining := len(mock.objects)
	mock.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected 0 objects after cleanup, got %d", remaining)
	}
}
