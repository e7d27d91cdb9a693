package constants

// 기록 파일 및 호스트 조회 경로
const (
	// 기본 기록 문서 (실행 디렉토리 기준)
	DefaultStorePath = "network_interfaces.json"

	// 리졸버 설정
	DefaultResolvConf = "/etc/resolv.conf"
	DefaultOSRelease  = "/etc/os-release"

	// 백업 디렉토리 (비어 있으면 백업 비활성화)
	DefaultBackupDir = ""

	// 기록 파일 권한
	RecordFilePermission = 0644
)

// 기본값 상수들
const (
	// 저장소 백엔드
	StoreBackendFile  = "file"
	StoreBackendMySQL = "mysql"

	// 데이터베이스 기본값
	DefaultDBHost = "localhost"
	DefaultDBPort = "3306"
	DefaultDBName = "netif_recorder"

	// 레코더 기본값
	DefaultLogLevel       = "info"
	DefaultHTTPPort       = "8080"
	DefaultCommandTimeout = 10 // seconds
	DefaultMaxBackups     = 10
)
