/*
 * @module service/upload/ingest_service
 * @description 销售计划表格导入服务，支持xlsx/xls和csv两种格式，
 *              表头做去重音归一化后按别名映射到规范字段，逐行校验并按自然键upsert，
 *              导入完成后重建组合快照并发布领域事件
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/upload_design.md
 * @stateFlow 解析 -> 逐行校验/写入 -> 快照重建 -> 事件发布；进度经通知中心上报
 * @rules 自然键为年份+产品编码+全部维度列；行级错误不中断导入，汇总在结果中返回；
 *        csv默认分号分隔，数值允许千分点与小数逗号（巴西区域格式）
 * @dependencies github.com/xuri/excelize/v2, golang.org/x/text, github.com/spf13/cast,
 *               github.com/prometheus/client_golang, gorm.io/gorm
 * @refs service/models/planning.go, service/preprocess/preprocess_service.go
 */

package upload

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"planning-service/service/event"
	"planning-service/service/meta"
	"planning-service/service/models"
	"planning-service/service/notification"
	"planning-service/service/preprocess"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_uploads_total",
		Help: "导入请求总数（按结果分类）",
	}, []string{"result"})
	rowsImportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planning_rows_imported_total",
		Help: "成功写入的数据行总数",
	})
	rowsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planning_rows_rejected_total",
		Help: "因校验失败被拒绝的数据行总数",
	})
)

// 导入错误
var (
	ErrEmptyFile         = errors.New("文件为空或没有数据行")
	ErrUnsupportedFormat = errors.New("不支持的文件格式，仅支持 xlsx/xls/csv")
)

// maxRowErrors 结果中保留的行级错误上限
const maxRowErrors = 50

// progressInterval 通知中心进度上报间隔（行数）
const progressInterval = 1000

// columnAliases 表头别名到规范字段的映射，表头先经归一化再查表
var columnAliases = map[string]string{
	"ano":               "year",
	"year":              "year",
	"diretor":           "director",
	"director":          "director",
	"sigla_uf":          "state_code",
	"uf":                "state_code",
	"state_code":        "state_code",
	"tipo_produto":      "product_type",
	"product_type":      "product_type",
	"familia":           "family",
	"family":            "family",
	"familia_producao":  "production_family",
	"production_family": "production_family",
	"marca":             "brand",
	"brand":             "brand",
	"situacao_lista":    "list_status",
	"list_status":       "list_status",
	"cod_produto":       "product_code",
	"product_code":      "product_code",
	"produto":           "product_name",
	"product_name":      "product_name",
	"fat_liq_kg":        "volume_kg",
	"volume_kg":         "volume_kg",
	"fat_liq_r":         "revenue",
	"fat_liq_rs":        "revenue",
	"revenue":           "revenue",
}

// listStatusAliases 上架状态取值归一化
var listStatusAliases = map[string]string{
	"ativo":     models.ListStatusActive,
	"active":    models.ListStatusActive,
	"planejado": models.ListStatusPlanned,
	"planned":   models.ListStatusPlanned,
}

// RowError 行级导入错误
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result 导入结果汇总
type Result struct {
	Filename       string     `json:"filename"`
	TotalRows      int        `json:"total_rows"`
	InsertedRows   int        `json:"inserted_rows"`
	UpdatedRows    int        `json:"updated_rows"`
	RejectedRows   int        `json:"rejected_rows"`
	Errors         []RowError `json:"errors,omitempty"`
	Combinations   int64      `json:"combinations"`
	NotificationID string     `json:"notification_id,omitempty"`
}

// Service 表格导入服务
type Service struct {
	db            *gorm.DB
	preprocess    *preprocess.Service
	notifications *notification.Center
	publisher     *event.Publisher
}

// NewService 创建导入服务实例，notifications/publisher 允许为nil
func NewService(db *gorm.DB, pre *preprocess.Service, center *notification.Center, publisher *event.Publisher) *Service {
	return &Service{db: db, preprocess: pre, notifications: center, publisher: publisher}
}

// normalizeHeader 表头归一化：去重音、转小写、非字母数字折叠为下划线
func normalizeHeader(header string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(chain, header)
	if err != nil {
		stripped = header
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// parseNumber 解析巴西区域格式数值：千分点+小数逗号，同时兼容标准格式
func parseNumber(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, nil
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	return cast.ToFloat64E(cleaned)
}

// normalizeListStatus 上架状态归一化，未知取值原样保留
func normalizeListStatus(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.ListStatusActive
	}
	if mapped, ok := listStatusAliases[strings.ToLower(trimmed)]; ok {
		return mapped
	}
	return trimmed
}

// readTable 按扩展名解析文件为表头+数据行
func readTable(reader io.Reader, filename string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return readExcel(reader)
	case ".csv":
		return readCSV(reader)
	default:
		return nil, nil, ErrUnsupportedFormat
	}
}

func readExcel(reader io.Reader) ([]string, [][]string, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("Excel文件解析失败: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyFile
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrEmptyFile
	}
	return rows[0], rows[1:], nil
}

func readCSV(reader io.Reader) ([]string, [][]string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}
	text := strings.TrimPrefix(string(content), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyFile
	}

	// 取首行判断分隔符，巴西区域导出默认分号
	firstLine := text
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		firstLine = text[:idx]
	}
	delimiter := ';'
	if strings.Count(firstLine, ",") > strings.Count(firstLine, ";") {
		delimiter = ','
	}

	csvReader := csv.NewReader(strings.NewReader(text))
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("CSV文件解析失败: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, ErrEmptyFile
	}
	return records[0], records[1:], nil
}

// mapColumns 将归一化后的表头映射到规范字段，返回字段到列下标的映射
func mapColumns(headers []string) (map[string]int, []string) {
	columnIndex := make(map[string]int)
	for i, header := range headers {
		if field, ok := columnAliases[normalizeHeader(header)]; ok {
			if _, exists := columnIndex[field]; !exists {
				columnIndex[field] = i
			}
		}
	}
	var missing []string
	for _, required := range meta.RequiredColumns {
		if _, ok := columnIndex[required]; !ok {
			missing = append(missing, required)
		}
	}
	sort.Strings(missing)
	return columnIndex, missing
}

func cellValue(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// parseRow 将一行数据解析为记录，校验失败返回错误
func parseRow(row []string, columnIndex map[string]int) (*models.PlanningRecord, error) {
	yearRaw := cellValue(row, columnIndex["year"])
	year, err := cast.ToIntE(yearRaw)
	if err != nil || year < 2000 || year > 2100 {
		return nil, fmt.Errorf("无效的年份: %q", yearRaw)
	}

	productCode := cellValue(row, columnIndex["product_code"])
	if productCode == "" {
		return nil, errors.New("产品编码不能为空")
	}

	volume, err := parseNumber(cellValue(row, columnIndex["volume_kg"]))
	if err != nil {
		return nil, fmt.Errorf("无效的销量数值: %q", cellValue(row, columnIndex["volume_kg"]))
	}
	revenue, err := parseNumber(cellValue(row, columnIndex["revenue"]))
	if err != nil {
		return nil, fmt.Errorf("无效的收入数值: %q", cellValue(row, columnIndex["revenue"]))
	}

	return &models.PlanningRecord{
		Year:             year,
		Director:         cellValue(row, columnIndex["director"]),
		StateCode:        strings.ToUpper(cellValue(row, columnIndex["state_code"])),
		ProductType:      cellValue(row, columnIndex["product_type"]),
		Family:           cellValue(row, columnIndex["family"]),
		ProductionFamily: cellValue(row, columnIndex["production_family"]),
		Brand:            cellValue(row, columnIndex["brand"]),
		ListStatus:       normalizeListStatus(cellValue(row, columnIndex["list_status"])),
		ProductCode:      productCode,
		ProductName:      cellValue(row, columnIndex["product_name"]),
		VolumeKg:         volume,
		Revenue:          revenue,
	}, nil
}

// ParseAndImport 解析文件并按自然键upsert全部数据行。
// 行级错误不会中断导入，最多保留前maxRowErrors条
func (s *Service) ParseAndImport(ctx context.Context, reader io.Reader, filename string) (*Result, error) {
	headers, rows, err := readTable(reader, filename)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	columnIndex, missing := mapColumns(headers)
	if len(missing) > 0 {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("缺少必需的列: %s", strings.Join(missing, ", "))
	}

	notificationID := ""
	if s.notifications != nil {
		notificationID = s.notifications.Start("upload", "数据导入",
			fmt.Sprintf("开始导入 %s（共 %d 行）", filename, len(rows)))
	}

	result := &Result{Filename: filename, TotalRows: len(rows), NotificationID: notificationID}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			record, parseErr := parseRow(row, columnIndex)
			if parseErr != nil {
				result.RejectedRows++
				rowsRejectedTotal.Inc()
				if len(result.Errors) < maxRowErrors {
					result.Errors = append(result.Errors, RowError{Row: i + 2, Message: parseErr.Error()})
				}
				continue
			}

			inserted, upsertErr := upsertRecord(tx, record)
			if upsertErr != nil {
				return upsertErr
			}
			if inserted {
				result.InsertedRows++
			} else {
				result.UpdatedRows++
			}
			rowsImportedTotal.Inc()

			if s.notifications != nil && (i+1)%progressInterval == 0 {
				s.notifications.Update(notificationID,
					fmt.Sprintf("已处理 %d/%d 行", i+1, len(rows)), i+1, len(rows))
			}
		}
		return nil
	})
	if err != nil {
		uploadsTotal.WithLabelValues("failed").Inc()
		if s.notifications != nil {
			s.notifications.Fail(notificationID, fmt.Sprintf("导入失败: %v", err), nil)
		}
		return nil, err
	}

	combinations, err := s.preprocess.RebuildCombinationsSnapshot()
	if err != nil {
		slog.Error("组合快照重建失败", "error", err)
	}
	result.Combinations = combinations

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, event.TypeUploadCompleted, map[string]interface{}{
			"filename":      filename,
			"inserted_rows": result.InsertedRows,
			"updated_rows":  result.UpdatedRows,
			"rejected_rows": result.RejectedRows,
			"combinations":  combinations,
		})
	}

	if s.notifications != nil {
		s.notifications.Complete(notificationID,
			fmt.Sprintf("导入完成：新增 %d 行，更新 %d 行，拒绝 %d 行",
				result.InsertedRows, result.UpdatedRows, result.RejectedRows),
			map[string]interface{}{"filename": filename, "combinations": combinations})
	}

	uploadsTotal.WithLabelValues("success").Inc()
	slog.Info("数据导入完成", "filename", filename,
		"inserted", result.InsertedRows, "updated", result.UpdatedRows, "rejected", result.RejectedRows)
	return result, nil
}

// upsertRecord 按自然键（年份+产品编码+全部分类列，含上市状态和产品名称）查找并更新，
// 不存在则插入。返回是否为新插入
func upsertRecord(tx *gorm.DB, record *models.PlanningRecord) (bool, error) {
	var existing models.PlanningRecord
	err := tx.Where(map[string]interface{}{
		"year":              record.Year,
		"product_code":      record.ProductCode,
		"director":          record.Director,
		"state_code":        record.StateCode,
		"product_type":      record.ProductType,
		"family":            record.Family,
		"production_family": record.ProductionFamily,
		"brand":             record.Brand,
		"list_status":       record.ListStatus,
		"product_name":      record.ProductName,
	}).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, tx.Create(record).Error
	}
	if err != nil {
		return false, err
	}

	existing.VolumeKg = record.VolumeKg
	existing.Revenue = record.Revenue
	return false, tx.Save(&existing).Error
}

// WipeAllRecords 清空全部计划数据和组合快照，返回删除的行数
func (s *Service) WipeAllRecords(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("1 = 1").Delete(&models.PlanningRecord{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return tx.Where("1 = 1").Delete(&models.PlanningCombination{}).Error
	})
	if err != nil {
		return 0, err
	}
	slog.Warn("计划数据已全部清空", "deleted_rows", deleted)
	return deleted, nil
}

// ListRecords 按过滤条件分页浏览数据行
func (s *Service) ListRecords(filters preprocess.Filters, limit, offset int) ([]models.PlanningRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var records []models.PlanningRecord
	tx := preprocess.ApplyFilters(s.db.Model(&models.PlanningRecord{}), filters)
	err := tx.Order("year, product_code").Limit(limit).Offset(offset).Find(&records).Error
	return records, err
}

// CountRecords 统计匹配过滤条件的行数和全表行数
func (s *Service) CountRecords(filters preprocess.Filters) (matched int64, total int64, err error) {
	if err = s.db.Model(&models.PlanningRecord{}).Count(&total).Error; err != nil {
		return
	}
	tx := preprocess.ApplyFilters(s.db.Model(&models.PlanningRecord{}), filters)
	err = tx.Count(&matched).Error
	return
}

// FilterOptions 返回每个可过滤字段的候选取值。
// 计算某字段候选值时忽略该字段自身的过滤条件（级联筛选）
func (s *Service) FilterOptions(filters preprocess.Filters) (map[string][]string, error) {
	options := make(map[string][]string, len(meta.AllowedGroupFields))
	for field, column := range meta.AllowedGroupFields {
		others := make(preprocess.Filters, len(filters))
		for key, values := range filters {
			if key != field {
				others[key] = values
			}
		}
		var values []string
		tx := preprocess.ApplyFilters(s.db.Model(&models.PlanningRecord{}), others)
		err := tx.Distinct(column).Order(column).Pluck(column, &values).Error
		if err != nil {
			return nil, err
		}
		options[field] = values
	}
	return options, nil
}
