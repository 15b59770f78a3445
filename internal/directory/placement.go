package directory

import (
	"slices"

	"github.com/iudanet/gophdir/internal/models"
)

const (
	// DefaultCandidates число слотов, возвращаемых orderCandidateNodes
	DefaultCandidates = 4
	// DefaultReplicas число различных узлов, на которые пишется файл
	DefaultReplicas = 2
)

// orderCandidates упорядочивает узлы для записи файла.
//
// Сначала идут текущие достижимые узлы записи (по возрастанию нагрузки),
// затем остальные достижимые узлы (по возрастанию нагрузки). Если узлов
// меньше k, список дополняется повтором последнего элемента. При равной
// нагрузке сохраняется порядок reachable. Без достижимых узлов возвращает nil.
func orderCandidates(record *models.FileRecord, reachable []string, load func(string) int64, k int) []string {
	if len(reachable) == 0 || k <= 0 {
		return nil
	}

	live := make(map[string]struct{}, len(reachable))
	for _, n := range reachable {
		live[n] = struct{}{}
	}

	byLoad := func(nodes []string) {
		slices.SortStableFunc(nodes, func(a, b string) int {
			la, lb := load(a), load(b)
			switch {
			case la < lb:
				return -1
			case la > lb:
				return 1
			}
			return 0
		})
	}

	out := make([]string, 0, k)
	seen := make(map[string]struct{}, k)

	if record != nil {
		var current []string
		for _, n := range record.Locations {
			if _, ok := live[n]; ok {
				current = append(current, n)
			}
		}
		byLoad(current)
		for _, n := range current {
			if len(out) == k {
				break
			}
			out = append(out, n)
			seen[n] = struct{}{}
		}
	}

	rest := make([]string, 0, len(reachable))
	for _, n := range reachable {
		if _, dup := seen[n]; !dup {
			rest = append(rest, n)
		}
	}
	byLoad(rest)
	for _, n := range rest {
		if len(out) == k {
			break
		}
		if _, dup := seen[n]; dup {
			continue
		}
		out = append(out, n)
		seen[n] = struct{}{}
	}

	for len(out) < k {
		out = append(out, out[len(out)-1])
	}
	return out
}

// firstDistinct возвращает первые n различных узлов из ordered
func firstDistinct(ordered []string, n int) []string {
	out := make([]string, 0, n)
	for _, node := range ordered {
		if len(out) == n {
			break
		}
		if !slices.Contains(out, node) {
			out = append(out, node)
		}
	}
	return out
}

// primary возвращает первый достижимый узел из упорядоченных locations
func primary(locations, reachable []string) (string, bool) {
	for _, n := range locations {
		if slices.Contains(reachable, n) {
			return n, true
		}
	}
	return "", false
}
