package config

import (
	"os"
	"strconv"
	"time"
)

type UnitTestConfig struct {
	// CaseTimeout bounds a single test case
	CaseTimeout time.Duration
	// MockMode is "explicit" or "heuristic"
	MockMode string
	// MaxUploadBytes caps uploaded test tables
	MaxUploadBytes int64
	HistoryLimit   int
}

func NewUnitTestConfig() *UnitTestConfig {
	timeoutSec, err := strconv.Atoi(os.Getenv("UNIT_TEST_CASE_TIMEOUT_SEC"))
	if err != nil || timeoutSec <= 0 {
		timeoutSec = 30
	}
	maxUploadMB, err := strconv.Atoi(os.Getenv("UNIT_TEST_MAX_UPLOAD_MB"))
	if err != nil || maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	historyLimit, err := strconv.Atoi(os.Getenv("UNIT_TEST_HISTORY_LIMIT"))
	if err != nil || historyLimit <= 0 {
		historyLimit = 50
	}
	mockMode := os.Getenv("UNIT_TEST_MOCK_MODE")
	if mockMode == "" {
		mockMode = "explicit"
	}
	return &UnitTestConfig{
		CaseTimeout:    time.Duration(timeoutSec) * time.Second,
		MockMode:       mockMode,
		MaxUploadBytes: int64(maxUploadMB) << 20,
		HistoryLimit:   historyLimit,
	}
}
