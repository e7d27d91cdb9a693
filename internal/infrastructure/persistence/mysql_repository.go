package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/infrastructure/metrics"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// 중복 키 에러 번호 (ER_DUP_ENTRY)
const mysqlDuplicateEntry = 1062

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS network_interfaces (
		name           VARCHAR(255) NOT NULL PRIMARY KEY,
		position       INT          NOT NULL,
		interface_type VARCHAR(32)  NOT NULL,
		status         VARCHAR(32)  NOT NULL,
		mac_address    VARCHAR(64)  NULL,
		ipv4_address   VARCHAR(64)  NULL,
		gateway        TEXT         NOT NULL,
		dns            TEXT         NOT NULL,
		modified_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_position (position)
	)`

const selectColumns = `name, interface_type, status, mac_address, ipv4_address, gateway, dns`

// MySQLRepository는 network_interfaces 테이블 기반의 RecordRepository/InterfaceTable 구현체입니다
type MySQLRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewMySQLRepository는 새로운 MySQLRepository를 생성합니다
func NewMySQLRepository(db *sql.DB, logger *logrus.Logger) *MySQLRepository {
	return &MySQLRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema는 테이블이 없으면 생성합니다
func (r *MySQLRepository) EnsureSchema(ctx context.Context) error {
	defer r.observe("ensure_schema", time.Now())

	if _, err := r.db.ExecContext(ctx, createTableQuery); err != nil {
		return errors.NewPersistenceError("테이블 생성 실패", err)
	}
	return nil
}

// Insert는 인터페이스를 마지막 위치에 추가합니다
func (r *MySQLRepository) Insert(ctx context.Context, iface entities.NetworkInterface) error {
	defer r.observe("insert", time.Now())

	row, err := encodeRow(iface)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO network_interfaces
			(name, position, interface_type, status, mac_address, ipv4_address, gateway, dns)
		SELECT ?, COALESCE(MAX(position) + 1, 0), ?, ?, ?, ?, ?, ?
		FROM network_interfaces
	`

	_, err = r.db.ExecContext(ctx, query,
		row.name, row.interfaceType, row.status, row.macAddress, row.ipv4Address, row.gateway, row.dns)
	if err != nil {
		if isDuplicateEntry(err) {
			return errors.NewConflictError(fmt.Sprintf("interface already exists: %s", iface.Name))
		}
		return errors.NewPersistenceError("인터페이스 추가 실패", err)
	}

	r.logger.WithField("interface", iface.Name).Debug("인터페이스 행 추가 완료")
	return nil
}

// FetchAll은 모든 행을 위치 순서대로 조회합니다
func (r *MySQLRepository) FetchAll(ctx context.Context) (entities.RecordSet, error) {
	defer r.observe("fetch_all", time.Now())

	query := `SELECT ` + selectColumns + ` FROM network_interfaces ORDER BY position, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewPersistenceError("데이터베이스 조회 실패", err)
	}
	defer rows.Close()

	records := entities.RecordSet{}
	for rows.Next() {
		var row interfaceRow
		if err := rows.Scan(
			&row.name,
			&row.interfaceType,
			&row.status,
			&row.macAddress,
			&row.ipv4Address,
			&row.gateway,
			&row.dns,
		); err != nil {
			return nil, errors.NewPersistenceError("행 스캔 실패", err)
		}

		iface, err := row.decode()
		if err != nil {
			return nil, err
		}
		records = append(records, iface)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("결과 처리 중 오류", err)
	}

	return records, nil
}

// UpdateByOldName은 oldName 행을 iface로 교체합니다. 위치는 유지됩니다
func (r *MySQLRepository) UpdateByOldName(ctx context.Context, oldName string, iface entities.NetworkInterface) error {
	defer r.observe("update", time.Now())

	row, err := encodeRow(iface)
	if err != nil {
		return err
	}

	query := `
		UPDATE network_interfaces
		SET name = ?, interface_type = ?, status = ?, mac_address = ?, ipv4_address = ?, gateway = ?, dns = ?
		WHERE name = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		row.name, row.interfaceType, row.status, row.macAddress, row.ipv4Address, row.gateway, row.dns, oldName)
	if err != nil {
		if isDuplicateEntry(err) {
			return errors.NewConflictError(fmt.Sprintf("interface already exists: %s", iface.Name))
		}
		return errors.NewPersistenceError("인터페이스 업데이트 실패", err)
	}

	return r.expectRow(result, oldName)
}

// DeleteByName은 이름으로 행을 삭제합니다
func (r *MySQLRepository) DeleteByName(ctx context.Context, name string) error {
	defer r.observe("delete", time.Now())

	result, err := r.db.ExecContext(ctx, `DELETE FROM network_interfaces WHERE name = ?`, name)
	if err != nil {
		return errors.NewPersistenceError("인터페이스 삭제 실패", err)
	}

	return r.expectRow(result, name)
}

// Load는 테이블 전체를 기록 집합으로 반환합니다
func (r *MySQLRepository) Load(ctx context.Context) (entities.RecordSet, error) {
	return r.FetchAll(ctx)
}

// Save는 하나의 트랜잭션 안에서 테이블을 비우고 기록 집합을 순서대로 다시 씁니다
func (r *MySQLRepository) Save(ctx context.Context, records entities.RecordSet) error {
	defer r.observe("save", time.Now())

	rows := make([]interfaceRow, 0, len(records))
	for _, iface := range records {
		row, err := encodeRow(iface)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewPersistenceError("트랜잭션 시작 실패", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM network_interfaces`); err != nil {
		return errors.NewPersistenceError("기존 행 삭제 실패", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO network_interfaces
			(name, position, interface_type, status, mac_address, ipv4_address, gateway, dns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewPersistenceError("쿼리 준비 실패", err)
	}
	defer stmt.Close()

	for position, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.name, position, row.interfaceType, row.status, row.macAddress, row.ipv4Address, row.gateway, row.dns); err != nil {
			if isDuplicateEntry(err) {
				return errors.NewConflictError(fmt.Sprintf("duplicate interface name: %s", row.name))
			}
			return errors.NewPersistenceError("행 추가 실패", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewPersistenceError("트랜잭션 커밋 실패", err)
	}

	r.logger.WithField("records", len(records)).Debug("기록 집합 저장 완료")
	return nil
}

func (r *MySQLRepository) expectRow(result sql.Result, name string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewPersistenceError("영향받은 행 확인 실패", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("interface not found: %s", name))
	}
	return nil
}

func (r *MySQLRepository) observe(queryType string, start time.Time) {
	metrics.RecordDBQuery(queryType, time.Since(start).Seconds())
}

// interfaceRow는 network_interfaces 테이블의 한 행입니다
type interfaceRow struct {
	name          string
	interfaceType string
	status        string
	macAddress    sql.NullString
	ipv4Address   sql.NullString
	gateway       string
	dns           string
}

func encodeRow(iface entities.NetworkInterface) (interfaceRow, error) {
	gateway := iface.Gateway
	if gateway == nil {
		gateway = []entities.Gateway{}
	}
	dns := iface.DNS
	if dns == nil {
		dns = []string{}
	}

	gatewayJSON, err := json.Marshal(gateway)
	if err != nil {
		return interfaceRow{}, errors.NewPersistenceError("게이트웨이 직렬화 실패", err)
	}
	dnsJSON, err := json.Marshal(dns)
	if err != nil {
		return interfaceRow{}, errors.NewPersistenceError("DNS 직렬화 실패", err)
	}

	return interfaceRow{
		name:          iface.Name,
		interfaceType: string(iface.InterfaceType),
		status:        string(iface.Status),
		macAddress:    nullString(iface.MacAddress),
		ipv4Address:   nullString(iface.IPv4Address),
		gateway:       string(gatewayJSON),
		dns:           string(dnsJSON),
	}, nil
}

func (row interfaceRow) decode() (entities.NetworkInterface, error) {
	iface := entities.NetworkInterface{
		Name:          row.name,
		InterfaceType: entities.InterfaceType(row.interfaceType),
		Status:        entities.InterfaceStatus(row.status),
		MacAddress:    stringPtr(row.macAddress),
		IPv4Address:   stringPtr(row.ipv4Address),
	}

	if err := json.Unmarshal([]byte(row.gateway), &iface.Gateway); err != nil {
		return entities.NetworkInterface{}, errors.NewPersistenceError(fmt.Sprintf("게이트웨이 파싱 실패: %s", row.name), err)
	}
	if err := json.Unmarshal([]byte(row.dns), &iface.DNS); err != nil {
		return entities.NetworkInterface{}, errors.NewPersistenceError(fmt.Sprintf("DNS 파싱 실패: %s", row.name), err)
	}

	return iface, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return entities.StringPtr(ns.String)
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return stderrors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
