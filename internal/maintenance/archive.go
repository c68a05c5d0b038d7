package maintenance

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/anoixa/image-admin/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	archiveVersion  = "1.0"
	metadataName    = "metadata.json"
	restoreBatch    = 100
	maxArchiveLine  = 4 << 20
	archiveTempGlob = "image-admin-backup-*.jsonl"
)

// ErrInvalidArchive 归档缺少元数据或版本不兼容
var ErrInvalidArchive = errors.New("invalid backup archive")

// ArchiveMeta 归档元数据，位于归档首个条目
type ArchiveMeta struct {
	Version     string           `json:"version"`
	Timestamp   time.Time        `json:"timestamp"`
	Database    string           `json:"database"`
	Tables      []string         `json:"tables"`
	RecordCount map[string]int64 `json:"record_count"`
}

// userRecord 导出时保留密码哈希
type userRecord struct {
	models.User
	Password string `json:"password"`
}

type groupPermissionRow struct {
	GroupID      uint `gorm:"column:group_id" json:"group_id"`
	PermissionID uint `gorm:"column:permission_id" json:"permission_id"`
}

type userGroupRow struct {
	UserID  uint `gorm:"column:user_id" json:"user_id"`
	GroupID uint `gorm:"column:group_id" json:"group_id"`
}

type userPermissionRow struct {
	UserID       uint `gorm:"column:user_id" json:"user_id"`
	PermissionID uint `gorm:"column:permission_id" json:"permission_id"`
}

// tableCodec 单张表的导出与解析
type tableCodec struct {
	name   string
	model  bool
	dump   func(ctx context.Context, db *gorm.DB, table string, enc *json.Encoder) (int64, error)
	decode func(line []byte) (interface{}, error)
}

// archiveTables 按依赖顺序排列
var archiveTables = []tableCodec{
	{"permissions", true, dumpModel[models.Permission](nil), decodeRow[models.Permission]},
	{"groups", true, dumpModel[models.Group](nil), decodeRow[models.Group]},
	{"users", true, dumpModel(func(u *models.User) interface{} {
		return userRecord{User: *u, Password: u.Password}
	}), decodeUser},
	{"images", true, dumpModel[models.Image](nil), decodeRow[models.Image]},
	{"labels", true, dumpModel[models.Label](nil), decodeRow[models.Label]},
	{"labeled_images", true, dumpModel[models.LabeledImage](nil), decodeRow[models.LabeledImage]},
	{"group_permissions", false, dumpRows[groupPermissionRow], decodeRow[groupPermissionRow]},
	{"user_groups", false, dumpRows[userGroupRow], decodeRow[userGroupRow]},
	{"user_permissions", false, dumpRows[userPermissionRow], decodeRow[userPermissionRow]},
}

// ArchiveTables 可备份的表名
func ArchiveTables() []string {
	names := make([]string, 0, len(archiveTables))
	for _, t := range archiveTables {
		names = append(names, t.name)
	}
	return names
}

func selectTables(tables []string) ([]tableCodec, error) {
	if len(tables) == 0 {
		return archiveTables, nil
	}
	for _, name := range tables {
		if !slices.Contains(ArchiveTables(), name) {
			return nil, fmt.Errorf("unknown table: %s", name)
		}
	}
	var out []tableCodec
	for _, t := range archiveTables {
		if slices.Contains(tables, t.name) {
			out = append(out, t)
		}
	}
	return out, nil
}

func dumpModel[T any](wrap func(*T) interface{}) func(context.Context, *gorm.DB, string, *json.Encoder) (int64, error) {
	return func(ctx context.Context, db *gorm.DB, _ string, enc *json.Encoder) (int64, error) {
		var batch []*T
		var count int64
		res := db.WithContext(ctx).Unscoped().FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
			for _, r := range batch {
				var v interface{} = r
				if wrap != nil {
					v = wrap(r)
				}
				if err := enc.Encode(v); err != nil {
					return err
				}
				count++
			}
			return nil
		})
		return count, res.Error
	}
}

func dumpRows[T any](ctx context.Context, db *gorm.DB, table string, enc *json.Encoder) (int64, error) {
	var rows []T
	if err := db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
		return 0, err
	}
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return 0, err
		}
	}
	return int64(len(rows)), nil
}

func decodeRow[T any](line []byte) (interface{}, error) {
	r := new(T)
	if err := json.Unmarshal(line, r); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeUser(line []byte) (interface{}, error) {
	var r userRecord
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, err
	}
	r.User.Password = r.Password
	return &r.User, nil
}

// Backup 将所选表导出为 JSONL 并打包成 tar.gz 写入 w
func Backup(ctx context.Context, db *gorm.DB, w io.Writer, tables []string) (*ArchiveMeta, error) {
	selected, err := selectTables(tables)
	if err != nil {
		return nil, err
	}

	meta := &ArchiveMeta{
		Version:     archiveVersion,
		Timestamp:   time.Now(),
		Database:    db.Dialector.Name(),
		RecordCount: make(map[string]int64),
	}

	// 先导出到临时文件，元数据需要记录条数
	files := make([]*os.File, 0, len(selected))
	defer func() {
		for _, f := range files {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	for _, t := range selected {
		f, err := os.CreateTemp("", archiveTempGlob)
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		files = append(files, f)

		buf := bufio.NewWriter(f)
		count, err := t.dump(ctx, db, t.name, json.NewEncoder(buf))
		if err != nil {
			return nil, fmt.Errorf("failed to backup table %s: %w", t.name, err)
		}
		if err := buf.Flush(); err != nil {
			return nil, err
		}
		meta.Tables = append(meta.Tables, t.name)
		meta.RecordCount[t.name] = count
		log.Printf("[Backup] Backed up %d records from table: %s", count, t.name)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	header, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeEntry(tw, metadataName, int64(len(header)), bytes.NewReader(header)); err != nil {
		return nil, err
	}
	for i, t := range selected {
		f := files[i]
		size, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if err := writeEntry(tw, t.name+".jsonl", size, f); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return meta, nil
}

func writeEntry(tw *tar.Writer, name string, size int64, r io.Reader) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0644,
		Size:     size,
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	}); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if _, err := io.Copy(tw, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// RestoreOptions 还原选项
type RestoreOptions struct {
	Tables     []string
	DryRun     bool
	Truncate   bool
	OnConflict string
}

// RestoreStats 还原统计
type RestoreStats struct {
	Meta     *ArchiveMeta
	Restored map[string]int64
	Errors   map[string]int64
}

// Restore 从 Backup 生成的归档还原数据，保留原主键
func Restore(ctx context.Context, db *gorm.DB, r io.Reader, opts RestoreOptions) (*RestoreStats, error) {
	if opts.OnConflict == "" {
		opts.OnConflict = ConflictSkip
	}
	if err := checkStrategy(opts.OnConflict); err != nil {
		return nil, err
	}
	selected, err := selectTables(opts.Tables)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer func() { _ = gz.Close() }()
	tr := tar.NewReader(gz)

	hdr, err := tr.Next()
	if err != nil || hdr.Name != metadataName {
		return nil, fmt.Errorf("%w: metadata.json must be the first entry", ErrInvalidArchive)
	}
	var meta ArchiveMeta
	if err := json.NewDecoder(tr).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if meta.Version != archiveVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidArchive, meta.Version)
	}
	log.Printf("[Restore] Backup version: %s, Database: %s, Timestamp: %s",
		meta.Version, meta.Database, meta.Timestamp.Format("2006-01-02 15:04:05"))

	stats := &RestoreStats{
		Meta:     &meta,
		Restored: make(map[string]int64),
		Errors:   make(map[string]int64),
	}

	if opts.Truncate && !opts.DryRun {
		if err := truncateTables(ctx, db, selected); err != nil {
			return stats, err
		}
	}

	var restored []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		name := strings.TrimSuffix(hdr.Name, ".jsonl")
		idx := slices.IndexFunc(selected, func(t tableCodec) bool { return t.name == name })
		if idx < 0 {
			log.Printf("[Restore] Skipping %s", hdr.Name)
			continue
		}
		t := selected[idx]
		if err := restoreTable(ctx, db, t, tr, opts, stats); err != nil {
			return stats, fmt.Errorf("failed to restore %s: %w", t.name, err)
		}
		if t.model {
			restored = append(restored, t.name)
		}
		log.Printf("[Restore] Restored %d records to %s", stats.Restored[t.name], t.name)
	}

	if !opts.DryRun {
		if err := resetSequences(ctx, db, restored); err != nil {
			log.Printf("[Restore] Warning: %v", err)
		}
	}

	var failed int64
	for _, n := range stats.Errors {
		failed += n
	}
	if failed > 0 {
		return stats, fmt.Errorf("restore completed with %d failed records", failed)
	}
	return stats, nil
}

func restoreTable(ctx context.Context, db *gorm.DB, t tableCodec, r io.Reader, opts RestoreOptions, stats *RestoreStats) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxArchiveLine)

	onConflict := opts.OnConflict
	if !t.model && onConflict == ConflictOverwrite {
		// 关联表没有可更新的列
		onConflict = ConflictSkip
	}

	batch := make([]interface{}, 0, restoreBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if opts.DryRun {
			stats.Restored[t.name] += int64(len(batch))
			batch = batch[:0]
			return
		}
		var affected int64
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, rec := range batch {
				res := withConflict(tx.Table(t.name), onConflict).Omit(clause.Associations).Create(rec)
				if res.Error != nil {
					return res.Error
				}
				affected += res.RowsAffected
			}
			return nil
		})
		if err != nil {
			log.Printf("[Restore] Warning: failed to insert %s batch: %v", t.name, err)
			stats.Errors[t.name] += int64(len(batch))
		} else {
			stats.Restored[t.name] += affected
		}
		batch = batch[:0]
	}

	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		rec, err := t.decode(line)
		if err != nil {
			log.Printf("[Restore] Warning: failed to decode %s record at line %d: %v", t.name, lineNum, err)
			stats.Errors[t.name]++
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= restoreBatch {
			flush()
		}
	}
	flush()
	return scanner.Err()
}

// truncateTables 按依赖逆序清空
func truncateTables(ctx context.Context, db *gorm.DB, tables []tableCodec) error {
	for i := len(tables) - 1; i >= 0; i-- {
		name := tables[i].name
		log.Printf("[Restore] Truncating table: %s", name)
		if err := db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s", name)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", name, err)
		}
	}
	return nil
}
