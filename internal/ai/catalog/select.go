package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNoEligibleModel 没有满足任务与允许列表的模型
var ErrNoEligibleModel = errors.New("no eligible model")

// Task 选择模型时的任务类型
type Task string

const (
	TaskChat   Task = "chat"
	TaskReason Task = "reason"
	TaskVision Task = "vision"
	TaskJSON   Task = "json"
	TaskTool   Task = "tool"
)

// SelectOptions 选择参数
type SelectOptions struct {
	Prefer  []string // 按顺序优先的模型 ID，命中即返回
	Allowed []string // 允许列表，为空表示不限制
}

// ParseAllowList 解析逗号分隔的模型允许列表
func ParseAllowList(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Supports 判断模型是否满足任务的能力要求，未知任务按纯文本处理
func (m ModelSpec) Supports(task Task) bool {
	switch task {
	case TaskVision:
		return m.HasVision()
	case TaskJSON:
		return m.HasJSONMode()
	case TaskTool:
		return m.HasTools()
	case TaskReason:
		return m.HasReasoning()
	default:
		return m.HasText()
	}
}

// Select 为任务选出最合适的模型
//
// 候选集为空时返回 ErrNoEligibleModel，不会退回到不满足条件的模型。
// Prefer 中第一个出现在候选集里的 ID 直接胜出；否则按质量档位与 budget 的距离升序、
// 速度档位降序排序，同分保持目录顺序。
func Select(cat Catalog, task Task, budget Quality, opts SelectOptions) (ModelSpec, error) {
	cat = cat.Clone()
	if err := Validate(cat); err != nil {
		return ModelSpec{}, err
	}

	var allowed map[string]bool
	if len(opts.Allowed) > 0 {
		allowed = make(map[string]bool, len(opts.Allowed))
		for _, id := range opts.Allowed {
			allowed[id] = true
		}
	}

	pool := make([]ModelSpec, 0, len(cat))
	for _, m := range cat {
		if !m.Supports(task) {
			continue
		}
		if allowed != nil && !allowed[m.ID] {
			continue
		}
		pool = append(pool, m)
	}
	if len(pool) == 0 {
		return ModelSpec{}, fmt.Errorf("%w: task=%s", ErrNoEligibleModel, task)
	}

	for _, id := range opts.Prefer {
		for _, m := range pool {
			if m.ID == id {
				return m, nil
			}
		}
	}

	target := budget.Rank()
	distance := func(m ModelSpec) int {
		d := m.Tiers.Quality.Rank() - target
		if d < 0 {
			return -d
		}
		return d
	}
	slices.SortStableFunc(pool, func(a, b ModelSpec) int {
		if c := cmp.Compare(distance(a), distance(b)); c != 0 {
			return c
		}
		return cmp.Compare(b.Tiers.Speed.Rank(), a.Tiers.Speed.Rank())
	})
	return pool[0], nil
}
