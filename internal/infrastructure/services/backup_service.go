package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"netif-recorder/internal/domain/constants"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// BackupService는 기록 파일을 덮어쓰기 전에 타임스탬프 사본을 남기는 서비스입니다
type BackupService struct {
	fileSystem interfaces.FileSystem
	clock      interfaces.Clock
	logger     *logrus.Logger
	backupDir  string
	maxBackups int
}

// NewBackupService는 새로운 BackupService를 생성합니다. maxBackups가 0 이하면 정리하지 않습니다
func NewBackupService(
	fs interfaces.FileSystem,
	clock interfaces.Clock,
	logger *logrus.Logger,
	backupDir string,
	maxBackups int,
) interfaces.BackupService {
	return &BackupService{
		fileSystem: fs,
		clock:      clock,
		logger:     logger,
		backupDir:  backupDir,
		maxBackups: maxBackups,
	}
}

// CreateBackup은 path의 현재 내용을 백업 디렉토리에 복사한 뒤 오래된 백업을 정리합니다
func (s *BackupService) CreateBackup(ctx context.Context, name string, path string) error {
	if !s.fileSystem.Exists(path) {
		s.logger.WithFields(logrus.Fields{
			"name": name,
			"path": path,
		}).Debug("백업할 기록 파일이 없음")
		return nil
	}

	if err := s.fileSystem.MkdirAll(s.backupDir, 0755); err != nil {
		return errors.NewSystemError("백업 디렉토리 생성 실패", err)
	}

	content, err := s.fileSystem.ReadFile(path)
	if err != nil {
		return errors.NewSystemError("기록 파일 읽기 실패", err)
	}

	// 예: network_interfaces_20250108_150405.000.json
	timestamp := s.clock.Now().Format("20060102_150405.000")
	backupFileName := fmt.Sprintf("%s_%s%s", name, timestamp, filepath.Ext(path))
	backupPath := filepath.Join(s.backupDir, backupFileName)

	if err := s.fileSystem.WriteFile(backupPath, content, constants.RecordFilePermission); err != nil {
		return errors.NewSystemError("백업 파일 저장 실패", err)
	}

	s.logger.WithFields(logrus.Fields{
		"name":        name,
		"backup_path": backupPath,
	}).Debug("기록 백업 생성 완료")

	return s.Prune(ctx, name)
}

// Prune은 가장 최근 maxBackups개만 남기고 오래된 백업을 삭제합니다
func (s *BackupService) Prune(ctx context.Context, name string) error {
	if s.maxBackups <= 0 {
		return nil
	}

	backupFiles, err := s.findBackupFiles(name)
	if err != nil {
		return err
	}
	if len(backupFiles) <= s.maxBackups {
		return nil
	}

	stale := backupFiles[:len(backupFiles)-s.maxBackups]
	for _, file := range stale {
		if err := s.fileSystem.Remove(filepath.Join(s.backupDir, file)); err != nil {
			return errors.NewSystemError("오래된 백업 삭제 실패", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"name":    name,
		"removed": len(stale),
	}).Debug("오래된 백업 정리 완료")

	return nil
}

// findBackupFiles는 name의 백업 파일들을 찾아 오래된 순으로 정렬된 목록을 반환합니다
func (s *BackupService) findBackupFiles(name string) ([]string, error) {
	if !s.fileSystem.Exists(s.backupDir) {
		return []string{}, nil
	}

	files, err := s.fileSystem.ListFiles(s.backupDir)
	if err != nil {
		return nil, errors.NewSystemError("백업 디렉토리 읽기 실패", err)
	}

	var backupFiles []string
	prefix := name + "_"
	for _, file := range files {
		if strings.HasPrefix(file, prefix) {
			backupFiles = append(backupFiles, file)
		}
	}

	// 파일명에 타임스탬프가 포함되어 있으므로 이름순이 시간순
	sort.Strings(backupFiles)

	return backupFiles, nil
}
