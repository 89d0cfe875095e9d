package store

import (
	"fmt"
	"strings"

	"station/internal/logging"
)

// KeyList holds the model API keys in rotation order.
type KeyList struct {
	doc *Document[[]string]
}

func NewKeyList(path string, logger logging.Logger) *KeyList {
	return &KeyList{doc: NewDocument(path, emptySlice[string], validateKeys, logger)}
}

func validateKeys(keys []string) error {
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("key %d is blank", i)
		}
	}
	return nil
}

func (k *KeyList) Keys() ([]string, error) {
	return k.doc.Read()
}

// Remove drops key from the list.
func (k *KeyList) Remove(key string) error {
	return k.doc.Update(func(keys []string) ([]string, error) {
		kept := keys[:0:0]
		for _, existing := range keys {
			if existing != key {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(keys) {
			return nil, ErrNotFound
		}
		return kept, nil
	})
}
