package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Upserter 幂等写入单个模型
type Upserter func(ctx context.Context, m ModelSpec) error

// Ensure 校验目录后逐个写入；cat 为空时使用 Default()
func Ensure(ctx context.Context, upsert Upserter, cat Catalog) error {
	if len(cat) == 0 {
		cat = Default()
	} else {
		cat = cat.Clone()
	}
	if err := Validate(cat); err != nil {
		return err
	}
	for _, m := range cat {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := upsert(ctx, m); err != nil {
			return fmt.Errorf("upsert %s: %w", m.ID, err)
		}
	}
	return nil
}

// ResolveID 把别名（忽略大小写的 Label）或 ID 解析为模型 ID
//
// 未命中时原样返回，不报错；cat 为空时在 Default() 中查找。
func ResolveID(aliasOrID string, cat Catalog) string {
	if len(cat) == 0 {
		cat = Default()
	}
	for _, m := range cat {
		if m.ID == aliasOrID {
			return aliasOrID
		}
		if strings.EqualFold(m.Label, aliasOrID) {
			return m.ID
		}
	}
	return aliasOrID
}
