// Package inventory is the sqlite-backed list of switches the service polls.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go-portwatch/internal/models"
	"go-portwatch/internal/probe"
)

var (
	ErrUnknownSwitch = errors.New("unknown switch")
	ErrInvalid       = errors.New("invalid inventory")
)

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&models.Switch{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Lookup returns the switch whose Name is id.
func (s *Store) Lookup(ctx context.Context, id string) (models.Switch, error) {
	var sw models.Switch
	err := s.db.WithContext(ctx).Where("name = ?", id).First(&sw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Switch{}, fmt.Errorf("%w: %s", ErrUnknownSwitch, id)
	}
	if err != nil {
		return models.Switch{}, err
	}
	return sw, nil
}

func (s *Store) List(ctx context.Context) ([]models.Switch, error) {
	var switches []models.Switch
	if err := s.db.WithContext(ctx).Order("name asc").Find(&switches).Error; err != nil {
		return nil, err
	}
	return switches, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Switch{}).Count(&n).Error
	return n, err
}

// Replace swaps the whole inventory in one transaction.
func (s *Store) Replace(ctx context.Context, switches []models.Switch) error {
	if err := Validate(switches); err != nil {
		return err
	}

	rows := make([]models.Switch, len(switches))
	for i, sw := range switches {
		sw.ID = 0
		rows[i] = sw
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Switch{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// Validate checks names are present and unique, hosts are set and probe
// methods are known.
func Validate(switches []models.Switch) error {
	seen := make(map[string]bool, len(switches))
	for i, sw := range switches {
		name := strings.TrimSpace(sw.Name)
		switch {
		case name == "":
			return fmt.Errorf("%w: switch %d has no name", ErrInvalid, i)
		case seen[name]:
			return fmt.Errorf("%w: duplicate switch %q", ErrInvalid, name)
		case strings.TrimSpace(sw.Host) == "":
			return fmt.Errorf("%w: switch %q has no host", ErrInvalid, name)
		case sw.Port < 0 || sw.Port > 65535:
			return fmt.Errorf("%w: switch %q port %d out of range", ErrInvalid, name, sw.Port)
		}
		if _, err := probe.ParseMethod(sw.Probe); err != nil {
			return fmt.Errorf("%w: switch %q: %v", ErrInvalid, name, err)
		}
		seen[name] = true
	}
	return nil
}
