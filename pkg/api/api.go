package api

import "github.com/iudanet/gophdir/internal/models"

// Заголовки протокола
const (
	// VersionHeader JSON версии каталога {"version":N,"replicaID":"..."}
	VersionHeader = "X-DFS-Version"
	// ReplicationHeader выставляется в "degraded", если кворум не собран вовремя
	ReplicationHeader = "X-DFS-Replication"
	// ReplicationDegraded значение ReplicationHeader
	ReplicationDegraded = "degraded"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// FileInfo описание файла, возвращаемое клиенту каталога
type FileInfo struct {
	Owner      string   `json:"owner"`
	Filename   string   `json:"filename"`
	FileURL    string   `json:"fileURL"`              // адрес байтов на основном узле
	SharedWith []string `json:"sharedWith,omitempty"` // кому открыт доступ
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version,omitempty"` // версия сборки
	ReplicaID string          `json:"replicaID,omitempty"`
	Role      string          `json:"role,omitempty"` // leader или follower
	Leader    string          `json:"leader,omitempty"`
	Current   *models.Version `json:"current,omitempty"` // последняя примененная версия каталога
}

// SnapshotRequest полное состояние каталога для отстающего последователя
type SnapshotRequest struct {
	Version models.Version      `json:"version"`
	Records []models.FileRecord `json:"records"`
}

// PurgeResponse итог удаления объектов владельца на storage-узле
type PurgeResponse struct {
	Deleted int `json:"deleted"`
}
