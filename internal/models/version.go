package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Version упорядочивает изменения состояния каталога.
// Сравнение идет сначала по Counter, при равенстве по ReplicaID (лексикографически).
// Значение неизменяемо: Next возвращает новую версию, а не меняет текущую.
type Version struct {
	ReplicaID string `json:"replicaID"` // ReplicaID реплика, выпустившая версию
	Counter   int64  `json:"version"`   // Counter монотонно растущий счетчик
}

var (
	// ZeroVersion меньше любой реальной версии.
	ZeroVersion = Version{Counter: math.MinInt64}
	// FutureVersion больше любой реальной версии.
	FutureVersion = Version{Counter: math.MaxInt64}
)

// Compare возвращает -1, 0 или +1.
func (v Version) Compare(other Version) int {
	switch {
	case v.Counter < other.Counter:
		return -1
	case v.Counter > other.Counter:
		return 1
	}
	return strings.Compare(v.ReplicaID, other.ReplicaID)
}

// IsNewerThan сообщает, что v строго больше other.
func (v Version) IsNewerThan(other Version) bool {
	return v.Compare(other) > 0
}

// Next возвращает следующую версию, выпущенную репликой replicaID.
// Вызывающий код обязан держать блокировку над полем, из которого взята v.
func (v Version) Next(replicaID string) Version {
	counter := v.Counter
	if counter < 0 {
		counter = 0
	}
	return Version{Counter: counter + 1, ReplicaID: replicaID}
}

// Follows сообщает, что v идет непосредственно за prev.
func (v Version) Follows(prev Version) bool {
	return v.Counter == prev.Counter+1
}

// IsZero сообщает, что версия равна ZeroVersion.
func (v Version) IsZero() bool {
	return v == ZeroVersion
}

func (v Version) String() string {
	switch v {
	case ZeroVersion:
		return "ZERO"
	case FutureVersion:
		return "FUTURE"
	}
	return fmt.Sprintf("%d@%s", v.Counter, v.ReplicaID)
}

// Header кодирует версию для заголовка X-DFS-Version.
func (v Version) Header() string {
	data, err := json.Marshal(v)
	if err != nil {
		// Version содержит только строку и число
		panic(err)
	}
	return string(data)
}

// ParseVersionHeader разбирает значение заголовка X-DFS-Version.
func ParseVersionHeader(value string) (Version, error) {
	var v Version
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return Version{}, fmt.Errorf("%w: malformed version header: %v", ErrBadRequest, err)
	}
	return v, nil
}
