package operations

import (
	"sync"
	"time"

	"github.com/applesandbeer/weatherisafog/internal/dataset"
	"github.com/applesandbeer/weatherisafog/internal/store"
	"github.com/applesandbeer/weatherisafog/pkg/contracts/domain"
)

// OperationStatus represents the overall operation status
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// OperationState represents the complete state of one spreadsheet-to-table run
type OperationState struct {
	mu sync.RWMutex

	ID        string
	Target    domain.TargetTable
	Path      string
	Status    OperationStatus
	StartTime time.Time
	EndTime   *time.Time

	// Steps in execution order
	Steps []*StepState

	// Dataset is set by the read step and transformed in place by the
	// following ones.
	Dataset *dataset.Dataset

	// Result is set by the write step
	Result store.Result

	// Error if operation failed
	Error error
}

// NewOperationState creates a new operation state
func NewOperationState(id string, target domain.TargetTable, path string) *OperationState {
	return &OperationState{
		ID:     id,
		Target: target,
		Path:   path,
		Status: OperationStatusPending,
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStep returns the state of a specific Step
func (p *OperationState) GetStep(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.Steps {
		if s.ID == stepID {
			return s
		}
	}
	return nil
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.StartTime.IsZero() {
		return 0
	}
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}
