package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpiryScan reports stock approaching expiry and discount candidates.
	TaskExpiryScan = "inventory:expiry_scan"
	// TaskLedgerAudit compares stored quantities against the transaction ledger.
	TaskLedgerAudit = "inventory:ledger_audit"
)

// ScanPayload carries scheduling metadata shared by the inventory tasks.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewExpiryScanTask constructs an Asynq task for the expiry scan.
func NewExpiryScanTask(at time.Time) (*asynq.Task, error) {
	return newScanTask(TaskExpiryScan, at)
}

// NewLedgerAuditTask constructs an Asynq task for the ledger audit.
func NewLedgerAuditTask(at time.Time) (*asynq.Task, error) {
	return newScanTask(TaskLedgerAudit, at)
}

func newScanTask(taskType string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

func decodeScanPayload(t *asynq.Task) (ScanPayload, error) {
	var payload ScanPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
