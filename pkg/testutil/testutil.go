// Package testutil provides testing utilities for the resvalidator application
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"resvalidator/internal/models"
)

// FakeAudit implements client.AuditService for testing
type FakeAudit struct {
	mu        sync.RWMutex
	scans     []string
	asns      []string
	responses map[string]ScanResponse
	summaries map[string]ASNResponse
	gate      chan struct{}
}

type ScanResponse struct {
	Results []models.ScanResult
	Error   error
	Delay   time.Duration
}

type ASNResponse struct {
	Summary *models.AsnSummary
	Error   error
}

func NewFakeAudit() *FakeAudit {
	return &FakeAudit{
		responses: make(map[string]ScanResponse),
		summaries: make(map[string]ASNResponse),
	}
}

// Scan returns the scripted response for target, or one result whose CIDR is
// the target itself.
func (f *FakeAudit) Scan(ctx context.Context, target string) ([]models.ScanResult, error) {
	f.mu.Lock()
	f.scans = append(f.scans, target)
	gate := f.gate
	response, exists := f.responses[target]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !exists {
		return []models.ScanResult{{CIDR: target, RPKIStatus: "VALID"}}, nil
	}
	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return response.Results, response.Error
}

func (f *FakeAudit) ExpandASN(ctx context.Context, asn string) (*models.AsnSummary, error) {
	f.mu.Lock()
	f.asns = append(f.asns, asn)
	response, exists := f.summaries[asn]
	f.mu.Unlock()

	if !exists {
		return &models.AsnSummary{ASN: asn}, nil
	}
	return response.Summary, response.Error
}

func (f *FakeAudit) SetScan(target string, response ScanResponse) {
	f.mu.Lock()
	f.responses[target] = response
	f.mu.Unlock()
}

func (f *FakeAudit) SetASN(asn string, response ASNResponse) {
	f.mu.Lock()
	f.summaries[asn] = response
	f.mu.Unlock()
}

// Hold makes every Scan block until the returned release func is called.
func (f *FakeAudit) Hold() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

func (f *FakeAudit) ScanCalls() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	calls := make([]string, len(f.scans))
	copy(calls, f.scans)
	return calls
}

func (f *FakeAudit) ASNCalls() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	calls := make([]string, len(f.asns))
	copy(calls, f.asns)
	return calls
}

// MemoryState implements dao.StateDAO in memory
type MemoryState struct {
	mu     sync.RWMutex
	items  map[string]string
	SetErr error
}

func NewMemoryState() *MemoryState {
	return &MemoryState{items: make(map[string]string)}
}

func (m *MemoryState) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryState) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.items[key] = value
	return nil
}

func (m *MemoryState) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// CreateTestFile creates a test file with the given content
func CreateTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", filePath, err)
	}

	return filePath
}

// WithTimeout creates a context with timeout for tests
func WithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// Eventually polls cond until it holds or the timeout passes
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
