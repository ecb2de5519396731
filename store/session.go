package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/inventohq/festival-system/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")

	errCiphertextTooShort = errors.New("session blob too short")
)

// SessionStore хранит сессии по InventoID. Блоб на диске шифруется
// secretbox'ом: в нём лежит bearer-токен бэкенда.
type SessionStore struct {
	mu       sync.RWMutex
	path     string
	key      [32]byte
	sessions map[string]*models.Session
}

// NewSessionStore открывает (или создаёт) хранилище сессий.
// keyHex — 64 hex-символа (32 байта).
func NewSessionStore(path, keyHex string) (*SessionStore, error) {
	rawKey, err := hex.DecodeString(keyHex)
	if err != nil || len(rawKey) != 32 {
		return nil, errors.New("session key must be 32 bytes of hex")
	}

	s := &SessionStore{
		path:     path,
		sessions: make(map[string]*models.Session),
	}
	copy(s.key[:], rawKey)

	if err := s.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Get возвращает сессию или ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, inventoID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[inventoID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	clone := *sess
	clone.Access = append([]string(nil), sess.Access...)
	return &clone, nil
}

// Put сохраняет сессию и сбрасывает хранилище на диск.
func (s *SessionStore) Put(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *sess
	clone.Access = append([]string(nil), sess.Access...)
	s.sessions[sess.InventoID] = &clone
	return s.persistLocked()
}

// Invalidate уничтожает сессию. Реализует apiclient.SessionInvalidator,
// поэтому 401 от бэкенда чистит сессию автоматически.
func (s *SessionStore) Invalidate(ctx context.Context, inventoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[inventoID]; !ok {
		return nil
	}
	delete(s.sessions, inventoID)
	return s.persistLocked()
}

// persisted — формат диска. Токен сериализуется только сюда,
// наружу Session его не отдаёт.
type persistedSession struct {
	Session *models.Session `json:"session"`
	Token   string          `json:"token"`
}

func (s *SessionStore) persistLocked() error {
	blob := make(map[string]persistedSession, len(s.sessions))
	for id, sess := range s.sessions {
		blob[id] = persistedSession{Session: sess, Token: sess.Token}
	}
	plain, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write session store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session store: %w", err)
	}
	return nil
}

func (s *SessionStore) load() error {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(sealed) < 24 {
		return errCiphertextTooShort
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		// Ключ сменился или файл битый: стартуем без сессий.
		return nil
	}

	var blob map[string]persistedSession
	if err := json.Unmarshal(plain, &blob); err != nil {
		return fmt.Errorf("failed to decode session store: %w", err)
	}
	for id, entry := range blob {
		if entry.Session == nil {
			continue
		}
		entry.Session.Token = entry.Token
		s.sessions[id] = entry.Session
	}
	return nil
}
