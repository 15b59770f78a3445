package models

import (
	"errors"
	"fmt"
)

// FileDelta минимальное описание изменения одной записи каталога.
// Единственная единица реплицируемой мутации.
type FileDelta struct {
	Owner            string   `json:"owner"`
	Filename         string   `json:"filename"`
	AddedLocations   []string `json:"addedLocations,omitempty"`
	RemovedLocations []string `json:"removedLocations,omitempty"`
	AddedShares      []string `json:"addedShares,omitempty"`
	RemovedShares    []string `json:"removedShares,omitempty"`
	Removed          bool     `json:"removed,omitempty"`
}

// FileID возвращает идентификатор целевой записи.
func (d *FileDelta) FileID() string {
	return FileID(d.Owner, d.Filename)
}

// IsEmpty сообщает, что дельта ничего не меняет.
func (d *FileDelta) IsEmpty() bool {
	return !d.Removed &&
		len(d.AddedLocations) == 0 &&
		len(d.RemovedLocations) == 0 &&
		len(d.AddedShares) == 0 &&
		len(d.RemovedShares) == 0
}

// Validate проверяет структурную корректность дельты.
func (d *FileDelta) Validate() error {
	if d.Owner == "" || d.Filename == "" {
		return errors.New("delta has no target file")
	}
	if d.Removed && (len(d.AddedLocations) > 0 || len(d.AddedShares) > 0) {
		return fmt.Errorf("removal delta for %s carries additions", d.FileID())
	}
	return nil
}

// Clone создает глубокую копию дельты
func (d *FileDelta) Clone() *FileDelta {
	c := *d
	c.AddedLocations = append([]string(nil), d.AddedLocations...)
	c.RemovedLocations = append([]string(nil), d.RemovedLocations...)
	c.AddedShares = append([]string(nil), d.AddedShares...)
	c.RemovedShares = append([]string(nil), d.RemovedShares...)
	return &c
}
