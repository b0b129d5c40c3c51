/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference .specify/memory/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"planning-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.PlanningRecord{},
		&models.PlanningCombination{},
		&models.LevelScoreRun{},
		&models.LevelScore{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"planning_records",
		"planning_combinations",
		"level_score_runs",
		"level_scores",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// PlanningRecordOption 计划数据行选项函数类型
type PlanningRecordOption func(*models.PlanningRecord)

// WithYear 指定年份
func WithYear(year int) PlanningRecordOption {
	return func(r *models.PlanningRecord) { r.Year = year }
}

// WithVolume 指定销量
func WithVolume(volume float64) PlanningRecordOption {
	return func(r *models.PlanningRecord) { r.VolumeKg = volume }
}

// WithRevenue 指定收入
func WithRevenue(revenue float64) PlanningRecordOption {
	return func(r *models.PlanningRecord) { r.Revenue = revenue }
}

// WithProductCode 指定产品编码
func WithProductCode(code string) PlanningRecordOption {
	return func(r *models.PlanningRecord) { r.ProductCode = code }
}

// WithDimensions 指定主要维度
func WithDimensions(director, stateCode, productType string) PlanningRecordOption {
	return func(r *models.PlanningRecord) {
		r.Director = director
		r.StateCode = stateCode
		r.ProductType = productType
	}
}

// WithListStatus 指定上架状态
func WithListStatus(status string) PlanningRecordOption {
	return func(r *models.PlanningRecord) { r.ListStatus = status }
}

// CreatePlanningRecord 创建测试计划数据行
func (f *TestDataFactory) CreatePlanningRecord(opts ...PlanningRecordOption) *models.PlanningRecord {
	record := &models.PlanningRecord{
		Year:             2026,
		Director:         "测试总监",
		StateCode:        "SP",
		ProductType:      "测试类型",
		Family:           "测试系列",
		ProductionFamily: "测试生产系列",
		Brand:            "测试品牌",
		ListStatus:       models.ListStatusActive,
		ProductCode:      "P001",
		ProductName:      "测试产品",
		VolumeKg:         100,
		Revenue:          200,
	}

	// 应用选项
	for _, opt := range opts {
		opt(record)
	}

	err := f.DB.Create(record).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test planning record: %v", err))
	}

	return record
}

// CreateYearlySeries 为同一产品创建一组逐年数据行
func (f *TestDataFactory) CreateYearlySeries(volumes map[int]float64, opts ...PlanningRecordOption) []*models.PlanningRecord {
	records := make([]*models.PlanningRecord, 0, len(volumes))
	for year, volume := range volumes {
		combined := append([]PlanningRecordOption{WithYear(year), WithVolume(volume), WithRevenue(volume * 2)}, opts...)
		records = append(records, f.CreatePlanningRecord(combined...))
	}
	return records
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
