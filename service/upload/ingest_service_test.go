/*
 * @module service/upload/ingest_service_test
 * @description 表格导入服务单元测试，覆盖CSV解析、表头归一化、自然键upsert、
 *              行级错误、过滤选项和全量清空
 * @architecture 测试层
 * @documentReference ai_docs/upload_design.md
 * @stateFlow 构造CSV -> 导入 -> 断言入库结果
 * @rules 使用内存SQLite，通知中心与事件发布器允许为nil
 * @dependencies github.com/stretchr/testify, planning-service/testutil
 * @refs service/upload/ingest_service.go
 */

package upload

import (
	"context"
	"strings"
	"testing"

	"planning-service/service/models"
	"planning-service/service/preprocess"
	"planning-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const portugueseCSV = `Ano;Diretor;Sigla UF;Tipo Produto;Família;Família Produção;Marca;Situação Lista;Cod Produto;Produto;Fat Liq KG;Fat Liq R$
2025;Sul;SP;Iogurte;Natural;Frio;MarcaA;Ativo;P001;Iogurte Natural;1.234,56;2.469,12
2026;Sul;SP;Iogurte;Natural;Frio;MarcaA;Ativo;P001;Iogurte Natural;1.300,00;2.600,00
`

func newTestService(db *gorm.DB) *Service {
	return NewService(db, preprocess.NewService(db), nil, nil)
}

func TestParseAndImportCSV(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := newTestService(tdb.DB)
	result, err := service.ParseAndImport(context.Background(), strings.NewReader(portugueseCSV), "plano.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.InsertedRows)
	assert.Zero(t, result.UpdatedRows)
	assert.Zero(t, result.RejectedRows)
	// 导入后快照同步重建
	assert.Equal(t, int64(1), result.Combinations)

	var record models.PlanningRecord
	require.NoError(t, tdb.DB.Where("year = ?", 2025).First(&record).Error)
	assert.Equal(t, "Sul", record.Director)
	assert.Equal(t, "SP", record.StateCode)
	// 葡语状态归一化为 Active
	assert.Equal(t, models.ListStatusActive, record.ListStatus)
	// 巴西区域数值格式：千分点+小数逗号
	assert.InDelta(t, 1234.56, record.VolumeKg, 1e-9)
	assert.InDelta(t, 2469.12, record.Revenue, 1e-9)
}

func TestParseAndImportUpsert(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := newTestService(tdb.DB)
	_, err := service.ParseAndImport(context.Background(), strings.NewReader(portugueseCSV), "plano.csv")
	require.NoError(t, err)

	// 第二次导入同一文件：按自然键更新而不是重复插入
	result, err := service.ParseAndImport(context.Background(), strings.NewReader(portugueseCSV), "plano.csv")
	require.NoError(t, err)
	assert.Zero(t, result.InsertedRows)
	assert.Equal(t, 2, result.UpdatedRows)

	var count int64
	require.NoError(t, tdb.DB.Model(&models.PlanningRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestParseAndImportKeepsRowsDifferingByStatus(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	// 仅上市状态不同的两行属于不同自然键，必须各自入库
	csv := `year;director;state_code;product_type;family;production_family;brand;list_status;product_code;product_name;volume_kg;revenue
2026;Sul;SP;Iogurte;Natural;Frio;MarcaA;Ativo;P001;Produto;100;200
2026;Sul;SP;Iogurte;Natural;Frio;MarcaA;Planejado;P001;Produto;50;100
`
	service := newTestService(tdb.DB)
	result, err := service.ParseAndImport(context.Background(), strings.NewReader(csv), "plano.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, result.InsertedRows)
	assert.Zero(t, result.UpdatedRows)

	var count int64
	require.NoError(t, tdb.DB.Model(&models.PlanningRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// 重复导入按状态各自更新
	result, err = service.ParseAndImport(context.Background(), strings.NewReader(csv), "plano.csv")
	require.NoError(t, err)
	assert.Zero(t, result.InsertedRows)
	assert.Equal(t, 2, result.UpdatedRows)

	var planned models.PlanningRecord
	require.NoError(t, tdb.DB.Where("list_status = ?", models.ListStatusPlanned).First(&planned).Error)
	assert.InDelta(t, 50, planned.VolumeKg, 1e-9)
}

func TestParseAndImportRowErrors(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	csv := `year;director;state_code;product_type;family;production_family;brand;list_status;product_code;product_name;volume_kg;revenue
2026;Sul;SP;Iogurte;Natural;Frio;MarcaA;Active;P001;Produto;100;200
abcd;Sul;SP;Iogurte;Natural;Frio;MarcaA;Active;P002;Produto;100;200
2026;Sul;SP;Iogurte;Natural;Frio;MarcaA;Active;;Produto;100;200
`
	service := newTestService(tdb.DB)
	result, err := service.ParseAndImport(context.Background(), strings.NewReader(csv), "plano.csv")
	require.NoError(t, err)

	assert.Equal(t, 1, result.InsertedRows)
	assert.Equal(t, 2, result.RejectedRows)
	require.Len(t, result.Errors, 2)
	// 错误行号以文件行计（表头为第1行）
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "年份")
	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Message, "产品编码")
}

func TestParseAndImportMissingColumns(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	csv := "year;director\n2026;Sul\n"
	service := newTestService(tdb.DB)
	_, err := service.ParseAndImport(context.Background(), strings.NewReader(csv), "plano.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "缺少必需的列")
}

func TestParseAndImportUnsupportedFormat(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := newTestService(tdb.DB)
	_, err := service.ParseAndImport(context.Background(), strings.NewReader("data"), "plano.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = service.ParseAndImport(context.Background(), strings.NewReader(""), "plano.csv")
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "familia_producao", normalizeHeader("Família Produção"))
	assert.Equal(t, "situacao_lista", normalizeHeader("Situação Lista"))
	assert.Equal(t, "fat_liq_r", normalizeHeader("Fat Liq R$"))
	assert.Equal(t, "sigla_uf", normalizeHeader("Sigla UF"))
	assert.Equal(t, "ano", normalizeHeader("  ANO  "))
}

func TestParseNumber(t *testing.T) {
	value, err := parseNumber("1.234,56")
	require.NoError(t, err)
	assert.InDelta(t, 1234.56, value, 1e-9)

	value, err = parseNumber("1234.56")
	require.NoError(t, err)
	assert.InDelta(t, 1234.56, value, 1e-9)

	value, err = parseNumber("")
	require.NoError(t, err)
	assert.Zero(t, value)

	_, err = parseNumber("abc")
	assert.Error(t, err)
}

func TestWipeAllRecords(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := newTestService(tdb.DB)
	_, err := service.ParseAndImport(context.Background(), strings.NewReader(portugueseCSV), "plano.csv")
	require.NoError(t, err)

	deleted, err := service.WipeAllRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var records, combos int64
	require.NoError(t, tdb.DB.Model(&models.PlanningRecord{}).Count(&records).Error)
	require.NoError(t, tdb.DB.Model(&models.PlanningCombination{}).Count(&combos).Error)
	assert.Zero(t, records)
	assert.Zero(t, combos)
}

func TestListRecordsAndFilterOptions(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreatePlanningRecord(testutil.WithDimensions("南区", "SP", "酸奶"))
	factory.CreatePlanningRecord(testutil.WithDimensions("北区", "RJ", "奶酪"), testutil.WithProductCode("P002"))

	service := newTestService(tdb.DB)

	records, err := service.ListRecords(preprocess.Filters{"director": {"南区"}}, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "南区", records[0].Director)

	matched, total, err := service.CountRecords(preprocess.Filters{"director": {"南区"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)
	assert.Equal(t, int64(2), total)

	// 级联筛选：director的候选值不受自身过滤条件影响
	options, err := service.FilterOptions(preprocess.Filters{"director": {"南区"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"南区", "北区"}, options["director"])
	// 其他字段的候选值受director过滤约束
	assert.Equal(t, []string{"SP"}, options["state_code"])
}
