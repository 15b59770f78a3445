package blob

import (
	"context"
	"fmt"

	"github.com/iudanet/gophdir/internal/crypto"
)

// Encrypted шифрует объекты перед записью в нижележащее хранилище
type Encrypted struct {
	Store
	cipher *crypto.Cipher
}

// NewEncrypted оборачивает store шифрованием AES-GCM
func NewEncrypted(store Store, cipher *crypto.Cipher) *Encrypted {
	return &Encrypted{Store: store, cipher: cipher}
}

// Put шифрует и сохраняет объект
func (s *Encrypted) Put(ctx context.Context, fileID string, data []byte) error {
	sealed, err := s.cipher.Seal(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt object: %w", err)
	}
	return s.Store.Put(ctx, fileID, sealed)
}

// Get читает и расшифровывает объект
func (s *Encrypted) Get(ctx context.Context, fileID string) ([]byte, error) {
	sealed, err := s.Store.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	data, err := s.cipher.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt object %s: %w", fileID, err)
	}
	return data, nil
}
