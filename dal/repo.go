package dal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	_ "github.com/mattn/go-sqlite3"
	"sync"
	"time"
	"weibo_relay/shared"
)

const schemaVer = 1

//go:embed scripts/*
var scripts embed.FS

// IRepo is the durable key-value back-end of the client cache.
type IRepo interface {
	InitUpdateDb()
	GetValue(key string) (val []byte, found bool, err error)
	SetValue(key string, val []byte) error
	DeleteValue(key string) error
	ListValues() ([]*ValueEntry, error)
	Close() error
}

type Repo struct {
	cfg    *shared.Config
	logger shared.ILogger
	db     *sql.DB
	muDb   sync.RWMutex
}

func NewRepo(cfg *shared.Config, logger shared.ILogger) IRepo {

	var err error
	var db *sql.DB

	// https://phiresky.github.io/blog/2020/sqlite-performance-tuning/
	// _synchronous=1 is "normal"
	cstr := "file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_synchronous=1&_busy_timeout=5000"
	db, err = sql.Open("sqlite3", fmt.Sprintf(cstr, cfg.DbFile))
	if err != nil {
		logger.Errorf("Failed to open/create DB file: %s: %v", cfg.DbFile, err)
		panic(err)
	}

	repo := Repo{
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	return &repo
}

func (repo *Repo) InitUpdateDb() {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	dbVer := 0
	sysParamsExists := false
	var err error
	var rows *sql.Rows

	rows, err = repo.db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name='sys_params'")
	if err != nil {
		repo.logger.Errorf("Failed to check if 'sys_params' table exists: %v", err)
		panic(err)
	}
	for rows.Next() {
		sysParamsExists = true
	}
	_ = rows.Close()
	if !sysParamsExists {
		repo.logger.Debugf("Database appears to be empty; current schema version is %d", schemaVer)
	} else {
		row := repo.db.QueryRow("SELECT val FROM sys_params WHERE name='schema_ver'")
		if err = row.Scan(&dbVer); err != nil {
			repo.logger.Errorf("Failed to query schema version: %v", err)
			panic(err)
		}
		repo.logger.Debugf("Database is at version %d; current schema version is %d", dbVer, schemaVer)
	}
	for i := dbVer; i < schemaVer; i += 1 {
		nextVer := i + 1
		fn := fmt.Sprintf("scripts/create-%02d.sql", nextVer)
		repo.logger.Debugf("Running %s", fn)
		var sqlBytes []byte
		if sqlBytes, err = scripts.ReadFile(fn); err != nil {
			repo.logger.Errorf("Failed to read init script %s: %v", fn, err)
			panic(err)
		}
		sqlStr := string(sqlBytes)
		if _, err = repo.db.Exec(sqlStr); err != nil {
			repo.logger.Errorf("Failed to execute init script %s: %v", fn, err)
			panic(err)
		}
		_, err = repo.db.Exec("UPDATE sys_params SET val=? WHERE name='schema_ver'", nextVer)
		if err != nil {
			repo.logger.Errorf("Failed to update schema_ver to %d: %v", nextVer, err)
			panic(err)
		}
	}
}

func (repo *Repo) GetValue(key string) ([]byte, bool, error) {

	repo.muDb.RLock()
	defer repo.muDb.RUnlock()

	row := repo.db.QueryRow(`SELECT val FROM kv_values WHERE key=?`, key)
	var err error
	var res []byte
	err = row.Scan(&res)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		} else {
			return nil, false, err
		}
	}
	return res, true, nil
}

func (repo *Repo) SetValue(key string, val []byte) error {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	_, err := repo.db.Exec(`INSERT INTO kv_values (key, val, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET val=excluded.val, updated_at=excluded.updated_at`,
		key, val, time.Now().UTC())
	if err != nil {
		return err
	}
	return nil
}

func (repo *Repo) DeleteValue(key string) error {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	_, err := repo.db.Exec(`DELETE FROM kv_values WHERE key=?`, key)
	return err
}

func (repo *Repo) ListValues() ([]*ValueEntry, error) {

	repo.muDb.RLock()
	defer repo.muDb.RUnlock()

	rows, err := repo.db.Query(`SELECT key, val, updated_at FROM kv_values ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*ValueEntry
	for rows.Next() {
		e := ValueEntry{}
		if err = rows.Scan(&e.Key, &e.Val, &e.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (repo *Repo) Close() error {
	repo.muDb.Lock()
	defer repo.muDb.Unlock()
	return repo.db.Close()
}
