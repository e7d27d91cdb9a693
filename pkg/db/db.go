package db

import (
	"context"
	"database/sql"
	"time"

	"netif-recorder/pkg/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// Config는 MySQL 연결 설정
type Config struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN은 드라이버 연결 문자열을 만듭니다.
// clientFoundRows는 값이 바뀌지 않은 UPDATE도 일치한 행으로 세도록 합니다.
func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host + ":" + c.Port
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// Open은 연결 풀을 만들고 Ping이 성공할 때까지 백오프로 재시도합니다
func Open(ctx context.Context, cfg Config, retry utils.RetryConfig, logger *logrus.Logger) (*sql.DB, error) {
	conn, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.MaxLifetime)

	err = utils.RetryWithBackoff(ctx, retry, func(attempt int) error {
		pingErr := conn.PingContext(ctx)
		if pingErr != nil {
			logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"host":    cfg.Host,
				"error":   pingErr,
			}).Warn("데이터베이스 핑 실패")
		}
		return pingErr
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("데이터베이스 연결 완료")

	return conn, nil
}
