// Package snapshot exports the application tables to JSON files on disk and
// imports them back. Each export or import runs asynchronously and records its
// progress as a BackupOperation.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidSource = errors.New("invalid backup source")
	ErrSourceMissing = errors.New("backup source does not exist")
)

const (
	fileSuffix  = ".json"
	importBatch = 200
)

// table is one exported collection, in dependency order
type table struct {
	name string
	rows func() any
}

var tables = []table{
	{"users", func() any { return &[]models.User{} }},
	{"clients", func() any { return &[]models.Client{} }},
	{"products", func() any { return &[]models.Product{} }},
	{"plans", func() any { return &[]models.Plan{} }},
	{"tasks", func() any { return &[]models.Task{} }},
}

// Info describes a stored snapshot
type Info struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	FileCount int       `json:"fileCount"`
	SizeBytes int64     `json:"sizeBytes"`
}

// Operator runs exports and imports against a local directory
type Operator struct {
	db      *gorm.DB
	opsRepo repository.BackupOperationRepository
	dir     string
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewOperator(db *gorm.DB, opsRepo repository.BackupOperationRepository, dir string, timeout time.Duration) *Operator {
	return &Operator{
		db:      db,
		opsRepo: opsRepo,
		dir:     dir,
		timeout: timeout,
		now:     time.Now,
	}
}

// StartExport records a new export operation and runs it in the background.
// The returned operation is a snapshot taken before the work starts.
func (o *Operator) StartExport(ctx context.Context) (*models.BackupOperation, error) {
	name := uuid.NewString()
	op := &models.BackupOperation{
		Name:      name,
		Kind:      models.BackupKindExport,
		SourceURI: o.now().UTC().Format("20060102T150405Z") + "-" + name[:8],
		State:     models.BackupStateNotStarted,
	}
	if err := o.opsRepo.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to record export: %w", err)
	}

	started := *op
	o.launch(op, o.export)
	return &started, nil
}

// StartImport records a new import of the named snapshot and runs it in the background
func (o *Operator) StartImport(ctx context.Context, source string) (*models.BackupOperation, error) {
	if err := o.CheckSource(ctx, source); err != nil {
		return nil, err
	}

	op := &models.BackupOperation{
		Name:      uuid.NewString(),
		Kind:      models.BackupKindImport,
		SourceURI: source,
		State:     models.BackupStateNotStarted,
	}
	if err := o.opsRepo.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	started := *op
	o.launch(op, o.restore)
	return &started, nil
}

// CheckSource verifies that source names an existing snapshot directory
func (o *Operator) CheckSource(_ context.Context, source string) error {
	path, err := o.path(source)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrSourceMissing, source)
	}
	return nil
}

// List returns stored snapshots, newest first
func (o *Operator) List(_ context.Context) ([]Info, error) {
	entries, err := os.ReadDir(o.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	infos := []Info{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := o.describe(entry.Name())
		if err != nil {
			log.Printf("Skipping unreadable snapshot %s: %v", entry.Name(), err)
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].Name > infos[j].Name
		}
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Wait blocks until every background operation has finished
func (o *Operator) Wait() {
	o.wg.Wait()
}

func (o *Operator) describe(name string) (Info, error) {
	dirInfo, err := os.Stat(filepath.Join(o.dir, name))
	if err != nil {
		return Info{}, err
	}
	files, err := os.ReadDir(filepath.Join(o.dir, name))
	if err != nil {
		return Info{}, err
	}

	info := Info{Name: name, CreatedAt: dirInfo.ModTime().UTC()}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), fileSuffix) {
			continue
		}
		fi, err := f.Info()
		if err != nil {
			return Info{}, err
		}
		info.FileCount++
		info.SizeBytes += fi.Size()
	}
	return info, nil
}

func (o *Operator) path(source string) (string, error) {
	name := strings.TrimSpace(source)
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	return filepath.Join(o.dir, name), nil
}

type work func(ctx context.Context, op *models.BackupOperation) error

// launch drives op through RUNNING to a terminal state on its own goroutine.
// The request context is not used: the operation outlives the request.
func (o *Operator) launch(op *models.BackupOperation, run work) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ctx := context.Background()
		if o.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.timeout)
			defer cancel()
		}

		if err := op.Transition(models.BackupStateRunning, o.now()); err != nil {
			log.Printf("Backup operation %s: %v", op.Name, err)
			return
		}
		o.save(op)

		err := run(ctx, op)
		if err != nil {
			op.Error = err.Error()
			_ = op.Transition(models.BackupStateFailed, o.now())
			log.Printf("Backup operation %s (%s %s) failed: %v", op.Name, op.Kind, op.SourceURI, err)
		} else {
			_ = op.Transition(models.BackupStateSucceeded, o.now())
			log.Printf("Backup operation %s (%s %s) succeeded", op.Name, op.Kind, op.SourceURI)
		}
		o.save(op)
	}()
}

func (o *Operator) save(op *models.BackupOperation) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.opsRepo.Update(ctx, op); err != nil {
		log.Printf("Failed to update backup operation %s: %v", op.Name, err)
	}
}

func (o *Operator) export(ctx context.Context, op *models.BackupOperation) error {
	target := filepath.Join(o.dir, op.SourceURI)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	for i, t := range tables {
		rows := t.rows()
		if err := o.db.WithContext(ctx).Find(rows).Error; err != nil {
			return fmt.Errorf("failed to read %s: %w", t.name, err)
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", t.name, err)
		}
		if err := os.WriteFile(filepath.Join(target, t.name+fileSuffix), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", t.name, err)
		}

		op.Progress = (i + 1) * 100 / len(tables)
		if op.Progress < 100 {
			o.save(op)
		}
	}
	return nil
}

// restore reads every file before touching the database, then upserts all rows
// in one transaction so a failed import leaves the tables unchanged.
func (o *Operator) restore(ctx context.Context, op *models.BackupOperation) error {
	source, err := o.path(op.SourceURI)
	if err != nil {
		return err
	}

	decoded := make([]any, len(tables))
	for i, t := range tables {
		data, err := os.ReadFile(filepath.Join(source, t.name+fileSuffix))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", t.name, err)
		}
		rows := t.rows()
		if err := json.Unmarshal(data, rows); err != nil {
			return fmt.Errorf("failed to decode %s: %w", t.name, err)
		}
		decoded[i] = rows
	}

	op.Progress = 50
	o.save(op)

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, rows := range decoded {
			if rows == nil || reflect.ValueOf(rows).Elem().Len() == 0 {
				continue
			}
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, importBatch).Error
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", tables[i].name, err)
			}
		}
		return nil
	})
}
