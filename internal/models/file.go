package models

import (
	"slices"
	"strings"
)

// FileIDSeparator разделяет владельца и имя файла в идентификаторе.
// Валидация запрещает этот символ в user id и имени файла.
const FileIDSeparator = "/"

// FileID вычисляет идентификатор файла по владельцу и имени.
func FileID(owner, filename string) string {
	return owner + FileIDSeparator + filename
}

// SplitFileID разбирает идентификатор на владельца и имя файла.
func SplitFileID(fileID string) (owner, filename string, ok bool) {
	return strings.Cut(fileID, FileIDSeparator)
}

// FileRecord снимок записи каталога.
// Locations упорядочены: первый элемент записан как основной узел.
type FileRecord struct {
	Owner      string   `json:"owner"`
	Filename   string   `json:"filename"`
	Locations  []string `json:"locations"`
	SharedWith []string `json:"sharedWith"`
}

// FileID возвращает вычисляемый идентификатор записи.
func (r *FileRecord) FileID() string {
	return FileID(r.Owner, r.Filename)
}

// HasAccess сообщает, может ли userID читать файл.
func (r *FileRecord) HasAccess(userID string) bool {
	return r.Owner == userID || slices.Contains(r.SharedWith, userID)
}

// Clone создает глубокую копию записи
func (r *FileRecord) Clone() *FileRecord {
	return &FileRecord{
		Owner:      r.Owner,
		Filename:   r.Filename,
		Locations:  slices.Clone(r.Locations),
		SharedWith: slices.Clone(r.SharedWith),
	}
}
