package persistence

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"netif-recorder/internal/domain/constants"
	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// FileRepository는 기록 집합 전체를 하나의 문서 파일로 저장하는 RecordRepository 구현체입니다
type FileRepository struct {
	path       string
	codec      Codec
	fileSystem interfaces.FileSystem
	backup     interfaces.BackupService
	logger     *logrus.Logger
}

// NewFileRepository는 새로운 FileRepository를 생성합니다. backup은 nil일 수 있습니다
func NewFileRepository(
	path string,
	codec Codec,
	fs interfaces.FileSystem,
	backup interfaces.BackupService,
	logger *logrus.Logger,
) *FileRepository {
	return &FileRepository{
		path:       path,
		codec:      codec,
		fileSystem: fs,
		backup:     backup,
		logger:     logger,
	}
}

// Path는 기록 문서의 경로를 반환합니다
func (r *FileRepository) Path() string {
	return r.path
}

// Load는 문서를 읽어 기록 집합을 반환합니다. 파일이 없거나 비어 있으면 빈 집합입니다
func (r *FileRepository) Load(ctx context.Context) (entities.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.fileSystem.Exists(r.path) {
		return entities.RecordSet{}, nil
	}

	data, err := r.fileSystem.ReadFile(r.path)
	if err != nil {
		return nil, errors.NewPersistenceError(fmt.Sprintf("failed to read %s", r.path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return entities.RecordSet{}, nil
	}

	records, err := r.codec.Unmarshal(data)
	if err != nil {
		return nil, errors.NewPersistenceError(fmt.Sprintf("failed to parse %s as %s", r.path, r.codec.Name()), err)
	}
	if records == nil {
		records = entities.RecordSet{}
	}

	return records, nil
}

// Save는 기록 집합으로 문서 전체를 교체합니다
func (r *FileRepository) Save(ctx context.Context, records entities.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := r.codec.Marshal(records)
	if err != nil {
		return errors.NewPersistenceError("failed to encode record set", err)
	}

	if r.backup != nil {
		// 백업 실패는 저장을 막지 않음
		if err := r.backup.CreateBackup(ctx, r.backupName(), r.path); err != nil {
			r.logger.WithError(err).WithField("path", r.path).Warn("기록 파일 백업 실패")
		}
	}

	if err := r.fileSystem.WriteFile(r.path, data, constants.RecordFilePermission); err != nil {
		return errors.NewPersistenceError(fmt.Sprintf("failed to write %s", r.path), err)
	}

	r.logger.WithFields(logrus.Fields{
		"path":    r.path,
		"records": len(records),
	}).Debug("기록 파일 저장 완료")

	return nil
}

func (r *FileRepository) backupName() string {
	base := filepath.Base(r.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
