package dto

import "time"

// BackupResponse un archivo de backup.
type BackupResponse struct {
	Name      string    `json:"name"`
	Suffix    string    `json:"suffix"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBackupRequest body opcional de POST /api/admin/backups.
type CreateBackupRequest struct {
	Suffix string `json:"suffix" validate:"omitempty,max=32"`
}

// SyncRunResponse resultado de una exportación al almacén secundario.
type SyncRunResponse struct {
	RunID      string    `json:"run_id"`
	Articles   int       `json:"articles"`
	Movements  int       `json:"movements"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NotificationRunResponse resultado de una evaluación de stock bajo.
type NotificationRunResponse struct {
	Notified []string `json:"notified"`
	Failed   []string `json:"failed,omitempty"`
}
