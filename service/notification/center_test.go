/*
 * @module service/notification/center_test
 * @description 通知中心单元测试，覆盖生命周期状态流转、进度更新和条目淘汰
 * @architecture 测试层
 * @documentReference ai_docs/notification_design.md
 * @stateFlow 创建 -> 更新 -> 结束 -> 列表断言
 * @rules 纯内存测试，无外部依赖
 * @dependencies github.com/stretchr/testify
 * @refs service/notification/center.go
 */

package notification

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationLifecycle(t *testing.T) {
	center := NewCenter()

	id := center.Start("upload", "数据导入", "开始导入")
	require.NotEmpty(t, id)

	entries := center.List()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusRunning, entries[0].Status)
	assert.Nil(t, entries[0].Progress)

	center.Update(id, "已处理 500/1000 行", 500, 1000)
	entries = center.List()
	require.NotNil(t, entries[0].Progress)
	assert.InDelta(t, 0.5, *entries[0].Progress, 1e-9)
	assert.Equal(t, 500, *entries[0].ProcessedRows)

	center.Complete(id, "导入完成", map[string]interface{}{"inserted": 1000})
	entries = center.List()
	assert.Equal(t, StatusCompleted, entries[0].Status)
	assert.InDelta(t, 1.0, *entries[0].Progress, 1e-9)
	assert.Equal(t, 1000, entries[0].Metadata["inserted"])

	// 已结束的通知不再接受进度更新
	center.Update(id, "迟到的更新", 1, 2)
	entries = center.List()
	assert.Equal(t, "导入完成", entries[0].Message)
}

func TestNotificationFail(t *testing.T) {
	center := NewCenter()

	id := center.Start("upload", "数据导入", "开始导入")
	center.Fail(id, "文件解析失败", nil)

	entries := center.List()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusFailed, entries[0].Status)
	assert.Equal(t, "文件解析失败", entries[0].Message)
}

func TestNotificationTrim(t *testing.T) {
	center := NewCenter()

	for i := 0; i < MaxItems+10; i++ {
		center.Start("upload", fmt.Sprintf("任务%d", i), "运行中")
	}

	entries := center.List()
	assert.Len(t, entries, MaxItems)
}

func TestNotificationUnknownID(t *testing.T) {
	center := NewCenter()

	// 未知ID的操作静默忽略
	center.Update("no-such-id", "x", 1, 2)
	center.Complete("no-such-id", "x", nil)
	center.Fail("no-such-id", "x", nil)
	assert.Empty(t, center.List())
}
