package database

import (
	"encoding/json"
	"fmt"

	"github.com/igs-sky/1A2B-Game/internal/cache"
	"github.com/igs-sky/1A2B-Game/internal/database"
	"github.com/igs-sky/1A2B-Game/internal/database/gamestate/model"
	bolt "go.etcd.io/bbolt"
)

const (
	statePrefix      = "gamestates"
	playerGamePrefix = "playergames"
)

var ErrEntryNotFound = fmt.Errorf("not found")

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB   *database.DB
	cache cache.Cache
}

// SaveGameState overwrites the snapshot stored for a session.
func (db *DB) SaveGameState(sessionID string, state model.State) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b := tx.Bucket([]byte(statePrefix))
	if b == nil {
		bs, err := tx.CreateBucket([]byte(statePrefix))
		if err != nil {
			return fmt.Errorf("can not create bucket: %w", err)
		}
		b = bs
	}

	bytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put([]byte(sessionID), bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (db *DB) ReadGameState(sessionID string) (model.State, error) {
	var state model.State

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statePrefix))
		if b == nil {
			return ErrEntryNotFound
		}

		bytes := b.Get([]byte(sessionID))
		if bytes == nil {
			return ErrEntryNotFound
		}

		if err := json.Unmarshal(bytes, &state); err != nil {
			return fmt.Errorf("json unmarshal error, %w", err)
		}

		return nil
	}); err != nil {
		return state, err
	}

	return state, nil
}

func (db *DB) DeleteGameState(sessionID string) error {
	return db.delete(statePrefix, sessionID)
}

// SavePlayerGame records which session a player belongs to, so a
// reconnecting identity can be routed back to its match.
func (db *DB) SavePlayerGame(playerID, sessionID string) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b := tx.Bucket([]byte(playerGamePrefix))
	if b == nil {
		bs, err := tx.CreateBucket([]byte(playerGamePrefix))
		if err != nil {
			return fmt.Errorf("can not create bucket: %w", err)
		}
		b = bs
	}

	if err := b.Put([]byte(playerID), []byte(sessionID)); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	db.cache.Add(playerID, sessionID)

	return nil
}

func (db *DB) ReadPlayerGame(playerID string) (string, error) {
	if sessionID, ok := db.cache.Get(playerID); ok {
		return sessionID.(string), nil
	}

	var sessionID string
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(playerGamePrefix))
		if b == nil {
			return ErrEntryNotFound
		}

		bytes := b.Get([]byte(playerID))
		if bytes == nil {
			return ErrEntryNotFound
		}

		sessionID = string(bytes)
		return nil
	}); err != nil {
		return "", err
	}

	db.cache.Add(playerID, sessionID)

	return sessionID, nil
}

func (db *DB) DeletePlayerGame(playerID string) error {
	db.cache.Delete(playerID)
	return db.delete(playerGamePrefix, playerID)
}

func (db *DB) delete(prefix, key string) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b := tx.Bucket([]byte(prefix))
	if b == nil {
		return nil
	}

	if err := b.Delete([]byte(key)); err != nil {
		return fmt.Errorf("delete from bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
