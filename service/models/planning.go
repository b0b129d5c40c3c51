/*
 * @module service/models/planning
 * @description 销售规划数据模型定义，包括规划记录和维度组合快照
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/model.md
 * @stateFlow 数据摄取 -> 存储 -> 聚合分析
 * @rules 规划记录按自然键（年份+产品编码+全部维度）唯一，重复摄取时更新度量值
 * @dependencies gorm.io/gorm
 * @refs ai_docs/requirements.md
 */

package models

// 列表状态常量
const (
	ListStatusActive  = "Active"  // 有效记录，参与预测分组
	ListStatusPlanned = "Planned" // 预测输出行的固定状态
)

// PlanningRecord 销售规划记录，对应上传数据集中的一行
type PlanningRecord struct {
	ID               uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Year             int     `json:"year" gorm:"not null;index"`
	Director         string  `json:"director" gorm:"index;size:255;default:''"`
	StateCode        string  `json:"state_code" gorm:"index;size:8;default:''"`
	ProductType      string  `json:"product_type" gorm:"index;size:255;default:''"`
	Family           string  `json:"family" gorm:"index;size:255;default:''"`
	ProductionFamily string  `json:"production_family" gorm:"size:255;default:''"`
	Brand            string  `json:"brand" gorm:"size:255"`
	ListStatus       string  `json:"list_status" gorm:"size:32;default:'Active'"`
	ProductCode      string  `json:"product_code" gorm:"index;size:64"`
	ProductName      string  `json:"product_name" gorm:"size:255"`
	VolumeKg         float64 `json:"volume_kg" gorm:"default:0"`
	Revenue          float64 `json:"revenue" gorm:"default:0"`
}

// PlanningCombination 维度组合快照，摄取完成后重建的辅助聚合表
type PlanningCombination struct {
	ID               uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Director         string  `json:"director" gorm:"index;size:255;default:''"`
	StateCode        string  `json:"state_code" gorm:"index;size:8;default:''"`
	ProductType      string  `json:"product_type" gorm:"index;size:255;default:''"`
	Family           string  `json:"family" gorm:"index;size:255;default:''"`
	ProductionFamily string  `json:"production_family" gorm:"size:255;default:''"`
	Brand            string  `json:"brand" gorm:"index;size:255;default:''"`
	ProductCode      string  `json:"product_code" gorm:"index;size:64"`
	ProductName      string  `json:"product_name" gorm:"size:255;default:''"`
	Records          int     `json:"records" gorm:"default:0"`      // 组合包含的记录行数
	FirstYear        int     `json:"first_year" gorm:"default:0"`   // 组合出现的最早年份
	LastYear         int     `json:"last_year" gorm:"default:0"`    // 组合出现的最晚年份
	TotalVolume      float64 `json:"total_volume" gorm:"default:0"` // 总销量(Kg)
	TotalRevenue     float64 `json:"total_revenue" gorm:"default:0"`
}
