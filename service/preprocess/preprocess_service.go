/*
 * @module service/preprocess/preprocess_service
 * @description 预处理服务，提供情景推演（基准/乐观/悲观）、维度过滤和维度组合快照的重建与查询
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/requirements.md
 * @stateFlow 过滤查询 -> 年度汇总 -> 基线推算 -> 情景乘数 -> 历史+预测拼接
 * @rules 情景乘数独立作用于销量与收入；过滤字段仅接受允许列表内的维度
 * @dependencies gorm.io/gorm
 * @refs service/analytics/analytics_service.go, service/meta/planning.go
 */

package preprocess

import (
	"planning-service/service/analytics"
	"planning-service/service/meta"
	"planning-service/service/models"

	"gorm.io/gorm"
)

// Filters 维度过滤条件，键为API字段名，值为候选值列表（空列表忽略）
type Filters map[string][]string

// ScenarioSeries 单个情景的完整序列（历史+推演）
type ScenarioSeries struct {
	Scenario meta.ScenarioDefinition `json:"scenario"`
	Series   []analytics.YearlyPoint `json:"series"`
}

// Service 预处理服务
type Service struct {
	db *gorm.DB
}

// NewService 创建预处理服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ApplyFilters 将维度过滤条件追加到查询上，未知字段和空值直接忽略
func ApplyFilters(tx *gorm.DB, filters Filters) *gorm.DB {
	for field, rawValues := range filters {
		column, ok := meta.AllowedGroupFields[field]
		if !ok {
			continue
		}
		values := make([]string, 0, len(rawValues))
		for _, value := range rawValues {
			if value != "" {
				values = append(values, value)
			}
		}
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			tx = tx.Where(column+" = ?", values[0])
		} else {
			tx = tx.Where(column+" IN ?", values)
		}
	}
	return tx
}

// collectYearlyTotals 按过滤条件汇总年度销量/收入
func (s *Service) collectYearlyTotals(filters Filters) ([]analytics.YearlyPoint, error) {
	var yearly []analytics.YearlyPoint
	query := s.db.Model(&models.PlanningRecord{}).
		Select("year, COALESCE(SUM(volume_kg), 0) AS volume, COALESCE(SUM(revenue), 0) AS revenue").
		Group("year").
		Order("year")
	err := ApplyFilters(query, filters).Scan(&yearly).Error
	return yearly, err
}

// countRecords 按过滤条件统计记录数
func (s *Service) countRecords(filters Filters) (int64, error) {
	var total int64
	query := s.db.Model(&models.PlanningRecord{})
	err := ApplyFilters(query, filters).Count(&total).Error
	return total, err
}

// GeneratePayload 情景推演：历史序列拼接（基线或已有未来年份）x 情景乘数
func (s *Service) GeneratePayload(filters Filters) (int64, []ScenarioSeries, error) {
	yearly, err := s.collectYearlyTotals(filters)
	if err != nil {
		return 0, nil, err
	}
	total, err := s.countRecords(filters)
	if err != nil {
		return 0, nil, err
	}

	historical := make([]analytics.YearlyPoint, 0, len(yearly))
	existingFuture := make([]analytics.YearlyPoint, 0)
	for _, point := range yearly {
		if point.Year <= meta.BaseYear {
			historical = append(historical, point)
		} else {
			existingFuture = append(existingFuture, point)
		}
	}

	baseline := analytics.ComputeBaseline(yearly)
	projectionSource := baseline
	if len(projectionSource) == 0 {
		projectionSource = existingFuture
	}

	scenarios := make([]ScenarioSeries, 0, len(meta.ScenarioDefinitions))
	for _, scenario := range meta.ScenarioDefinitions {
		projections := make([]analytics.YearlyPoint, 0, len(projectionSource))
		for _, point := range projectionSource {
			projections = append(projections, analytics.YearlyPoint{
				Year:    point.Year,
				Volume:  point.Volume * scenario.VolumeMultiplier,
				Revenue: point.Revenue * scenario.RevenueMultiplier,
			})
		}
		combined := make([]analytics.YearlyPoint, 0, len(historical)+len(projections))
		combined = append(combined, historical...)
		combined = append(combined, projections...)
		scenarios = append(scenarios, ScenarioSeries{Scenario: scenario, Series: combined})
	}

	return total, scenarios, nil
}

// RebuildCombinationsSnapshot 重算维度组合快照表，摄取完成后以及定时任务调用
func (s *Service) RebuildCombinationsSnapshot() (int64, error) {
	var total int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PlanningCombination{}).Error; err != nil {
			return err
		}

		var snapshots []models.PlanningCombination
		err := tx.Model(&models.PlanningRecord{}).
			Select(`director, state_code, product_type, family, production_family, brand, product_code, product_name,
				COUNT(*) AS records,
				MIN(year) AS first_year,
				MAX(year) AS last_year,
				COALESCE(SUM(volume_kg), 0) AS total_volume,
				COALESCE(SUM(revenue), 0) AS total_revenue`).
			Group("director, state_code, product_type, family, production_family, brand, product_code, product_name").
			Order("director, state_code, product_type").
			Scan(&snapshots).Error
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(snapshots, 500).Error; err != nil {
			return err
		}
		total = int64(len(snapshots))
		return nil
	})
	return total, err
}

// ListCombinations 查询维度组合快照，可按年份覆盖范围和维度过滤
func (s *Service) ListCombinations(limit int, year *int, filters Filters) ([]models.PlanningCombination, error) {
	query := s.db.Model(&models.PlanningCombination{}).
		Order("director, state_code, product_type, family, brand, product_code")

	query = ApplyFilters(query, filters)

	if year != nil {
		query = query.Where("first_year <= ? AND last_year >= ?", *year, *year)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var combinations []models.PlanningCombination
	err := query.Find(&combinations).Error
	return combinations, err
}
