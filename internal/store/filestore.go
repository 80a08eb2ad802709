// internal/store/filestore.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

// Reserved top-level keys in the data file; everything else is a
// stringified user id.
const (
	keyPayments = "__payments__"
	keyGreeting = "__greeting__"
)

// FileStore persists everything in one JSON file. Every mutation is a
// read-entire-file, modify, write-entire-file cycle under a single
// process-wide mutex, so concurrent workers cannot lose updates.
type FileStore struct {
	mu    sync.Mutex
	path  string
	trial time.Duration
	log   *logger.Logger
	now   func() time.Time
}

type fileData struct {
	users    map[int64]models.UserAccount
	payments []models.PaymentRecord
	greeting string
}

func NewFileStore(path string, trial time.Duration, log *logger.Logger) *FileStore {
	return &FileStore{
		path:  path,
		trial: trial,
		log:   log,
		now:   time.Now,
	}
}

// load reads the whole data file. Any read or decode failure degrades to
// empty state rather than failing the handler.
func (s *FileStore) load() *fileData {
	data := &fileData{users: make(map[int64]models.UserAccount)}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnw("Failed to read data file, treating as empty", "path", s.path, "error", err)
		}
		return data
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		s.log.Warnw("Failed to decode data file, treating as empty", "path", s.path, "error", err)
		return data
	}

	for key, value := range top {
		switch key {
		case keyPayments:
			if err := json.Unmarshal(value, &data.payments); err != nil {
				s.log.Warnw("Failed to decode payment log", "error", err)
			}
		case keyGreeting:
			if err := json.Unmarshal(value, &data.greeting); err != nil {
				s.log.Warnw("Failed to decode greeting", "error", err)
			}
		default:
			userID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				s.log.Warnw("Skipping unknown key in data file", "key", key)
				continue
			}
			var account models.UserAccount
			if err := json.Unmarshal(value, &account); err != nil {
				s.log.Warnw("Skipping unreadable account", "user_id", userID, "error", err)
				continue
			}
			data.users[userID] = account
		}
	}
	return data
}

// save writes the whole data file back. Write failures propagate to the
// caller, which surfaces a user-visible retry message.
func (s *FileStore) save(data *fileData) error {
	top := make(map[string]interface{}, len(data.users)+2)
	for userID, account := range data.users {
		top[strconv.FormatInt(userID, 10)] = account
	}
	if data.payments != nil {
		top[keyPayments] = data.payments
	}
	if data.greeting != "" {
		top[keyGreeting] = data.greeting
	}

	raw, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}

func (s *FileStore) getOrCreate(data *fileData, userID int64) (models.UserAccount, bool) {
	if account, ok := data.users[userID]; ok {
		return account, false
	}
	account := models.UserAccount{JoinedAt: s.now().Unix()}
	data.users[userID] = account
	return account, true
}

func (s *FileStore) GetOrCreateAccount(_ context.Context, userID int64) (models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, created := s.getOrCreate(data, userID)
	if !created {
		return account, nil
	}
	if err := s.save(data); err != nil {
		return account, err
	}
	return account, nil
}

func (s *FileStore) Account(_ context.Context, userID int64) (models.UserAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, ok := data.users[userID]
	return account, ok, nil
}

func (s *FileStore) SaveProfile(_ context.Context, userID int64, profile models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, _ := s.getOrCreate(data, userID)
	account.Profile = &profile
	data.users[userID] = account
	return s.save(data)
}

func (s *FileStore) GrantPremium(_ context.Context, userID int64, days int) (models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, _ := s.getOrCreate(data, userID)

	now := s.now().Unix()
	base := account.PremiumUntil
	if base < now {
		base = now
	}
	account.PremiumUntil = base + int64(days)*86400
	account.Premium = true
	data.users[userID] = account

	if err := s.save(data); err != nil {
		return account, err
	}
	return account, nil
}

func (s *FileStore) RevokePremium(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, _ := s.getOrCreate(data, userID)
	account.Premium = false
	account.PremiumUntil = 0
	data.users[userID] = account
	return s.save(data)
}

func (s *FileStore) HasPremium(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, ok := data.users[userID]
	if !ok {
		return false, nil
	}

	now := s.now().Unix()
	if account.Premium && account.PremiumUntil > now {
		return true, nil
	}
	if account.Premium {
		// Lazy expiry: clear the stale flag so raw reads observe it.
		account.Premium = false
		data.users[userID] = account
		if err := s.save(data); err != nil {
			s.log.Warnw("Failed to persist lazy premium expiry", "user_id", userID, "error", err)
		}
	}
	return false, nil
}

func (s *FileStore) StartTrialIfNeeded(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, _ := s.getOrCreate(data, userID)
	if account.TrialStarted != 0 {
		return nil
	}
	now := s.now()
	account.TrialStarted = now.Unix()
	account.TrialUntil = now.Add(s.trial).Unix()
	data.users[userID] = account
	return s.save(data)
}

func (s *FileStore) TrialActive(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	account, ok := data.users[userID]
	if !ok || account.TrialStarted == 0 {
		return false, nil
	}
	return s.now().Unix() <= account.TrialUntil, nil
}

func (s *FileStore) RecordPayment(_ context.Context, userID int64, amount int, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	data.payments = append(data.payments, models.PaymentRecord{
		UserID:    userID,
		Amount:    amount,
		Timestamp: s.now().Unix(),
		Payload:   payload,
	})
	return s.save(data)
}

func (s *FileStore) CountAccounts(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load().users), nil
}

func (s *FileStore) CountActivePremium(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	active := 0
	for _, account := range s.load().users {
		if account.Premium && account.PremiumUntil > now {
			active++
		}
	}
	return active, nil
}

func (s *FileStore) PaymentStats(_ context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments := s.load().payments
	total := 0
	for _, p := range payments {
		total += p.Amount
	}
	return total, len(payments), nil
}

func (s *FileStore) UserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	ids := make([]int64, 0, len(data.users))
	for userID := range data.users {
		ids = append(ids, userID)
	}
	return ids, nil
}

func (s *FileStore) Greeting(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().greeting, nil
}

func (s *FileStore) SetGreeting(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	data.greeting = text
	return s.save(data)
}

func (s *FileStore) Close() {}
