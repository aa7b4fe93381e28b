package app

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/squads"
)

// SettingsStore holds the rpc endpoint, program id and active multisig
// chosen by the user. Every setter validates before storing.
type SettingsStore interface {
	Get() (models.Settings, error)
	SetRPCURL(rpcURL string) error
	SetProgramID(programID string) error
	SetMultisigAddress(address string) error
}

func parseRPCURL(rpcURL string) (string, error) {
	parsed, err := url.ParseRequestURI(rpcURL)
	if err != nil || parsed.Host == "" {
		return "", common.NewValidationError("rpc url", "%q is not a valid url", rpcURL)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return "", common.NewValidationError("rpc url", "unsupported scheme %q", parsed.Scheme)
	}
	return rpcURL, nil
}

func parseOptionalPublicKey(field string, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, common.NewValidationError(field, "%q is not a valid address", value)
	}
	return key, nil
}

// SettingsFromConfig returns the configured defaults. A missing program id
// falls back to the public Squads program.
func SettingsFromConfig() (models.Settings, error) {
	programID, err := parseOptionalPublicKey("program id", Config.Solana.ProgramID)
	if err != nil {
		return models.Settings{}, err
	}
	if programID.IsZero() {
		programID = squads.DefaultProgramID
	}
	multisig, err := parseOptionalPublicKey("multisig", Config.Solana.MultisigAddress)
	if err != nil {
		return models.Settings{}, err
	}
	return models.Settings{
		RPCURL:          Config.Solana.RPCURL,
		ProgramID:       programID,
		MultisigAddress: multisig,
	}, nil
}

type memorySettingsStore struct {
	mu       sync.Mutex
	settings models.Settings
}

var _ SettingsStore = &memorySettingsStore{}

func (s *memorySettingsStore) Get() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *memorySettingsStore) SetRPCURL(rpcURL string) error {
	rpcURL, err := parseRPCURL(rpcURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.RPCURL = rpcURL
	return nil
}

func (s *memorySettingsStore) SetProgramID(programID string) error {
	key, err := parseOptionalPublicKey("program id", programID)
	if err != nil {
		return err
	}
	if key.IsZero() {
		key = squads.DefaultProgramID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.ProgramID = key
	return nil
}

func (s *memorySettingsStore) SetMultisigAddress(address string) error {
	key, err := parseOptionalPublicKey("multisig", address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.MultisigAddress = key
	return nil
}

// mongoSettingsStore persists one settings document. Values missing from
// the document fall back to the configured defaults.
type mongoSettingsStore struct {
	db       Database
	defaults models.Settings
}

var _ SettingsStore = &mongoSettingsStore{}

func (s *mongoSettingsStore) filter() bson.M {
	return bson.M{"key": models.SettingsKey}
}

func (s *mongoSettingsStore) Get() (models.Settings, error) {
	settings := s.defaults

	var doc models.SettingsDocument
	err := s.db.FindOne(models.CollectionSettings, s.filter(), &doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}

	if doc.RPCURL != "" {
		settings.RPCURL = doc.RPCURL
	}
	if doc.ProgramID != "" {
		programID, err := solana.PublicKeyFromBase58(doc.ProgramID)
		if err != nil {
			return settings, fmt.Errorf("stored program id is invalid: %w", err)
		}
		settings.ProgramID = programID
	}
	if doc.MultisigAddress != "" {
		multisig, err := solana.PublicKeyFromBase58(doc.MultisigAddress)
		if err != nil {
			return settings, fmt.Errorf("stored multisig is invalid: %w", err)
		}
		settings.MultisigAddress = multisig
	}
	return settings, nil
}

func (s *mongoSettingsStore) set(field string, value string) error {
	lockId, err := s.db.XLock(models.CollectionSettings)
	if err != nil {
		return fmt.Errorf("failed to lock settings: %w", err)
	}
	defer func() {
		if err := s.db.Unlock(lockId); err != nil {
			log.WithError(err).Error("[SETTINGS] Error unlocking settings")
		}
	}()

	update := bson.M{
		"$set": bson.M{
			field:        value,
			"updated_at": time.Now(),
		},
		"$setOnInsert": bson.M{
			"key": models.SettingsKey,
		},
	}
	if _, err := s.db.UpsertOne(models.CollectionSettings, s.filter(), update); err != nil {
		return fmt.Errorf("failed to store settings: %w", err)
	}
	log.WithField(field, value).Info("[SETTINGS] Updated settings")
	return nil
}

func (s *mongoSettingsStore) SetRPCURL(rpcURL string) error {
	rpcURL, err := parseRPCURL(rpcURL)
	if err != nil {
		return err
	}
	return s.set("rpc_url", rpcURL)
}

func (s *mongoSettingsStore) SetProgramID(programID string) error {
	if _, err := parseOptionalPublicKey("program id", programID); err != nil {
		return err
	}
	return s.set("program_id", programID)
}

func (s *mongoSettingsStore) SetMultisigAddress(address string) error {
	if _, err := parseOptionalPublicKey("multisig", address); err != nil {
		return err
	}
	return s.set("multisig_address", address)
}

// NewSettingsStore persists to mongo when DB is initialized and keeps
// settings in memory otherwise.
func NewSettingsStore() SettingsStore {
	defaults, err := SettingsFromConfig()
	if err != nil {
		log.Fatal("[SETTINGS] Invalid settings in config: ", err)
	}

	if DB == nil {
		log.Debug("[SETTINGS] Using in-memory settings")
		return &memorySettingsStore{settings: defaults}
	}
	log.Debug("[SETTINGS] Using mongo settings")
	return &mongoSettingsStore{db: DB, defaults: defaults}
}
