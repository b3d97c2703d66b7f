package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

// DefaultTable 默认表名
const DefaultTable = "models"

// ErrInvalidTableName 表名不是合法标识符
var ErrInvalidTableName = errors.New("invalid table name; use alphanumerics and underscores, not starting with a digit")

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// modelRow 一行一个模型，结构化字段以 JSON 文本保存
type modelRow struct {
	ID              string `gorm:"column:id;primaryKey;type:text"`
	Provider        string `gorm:"column:provider;type:text;not null"`
	Label           string `gorm:"column:label;type:text;not null"`
	Family          string `gorm:"column:family;type:text;not null"`
	ContextWindow   int    `gorm:"column:context_window;not null"`
	MaxOutputTokens int    `gorm:"column:max_output_tokens;not null"`
	Modalities      string `gorm:"column:modalities;type:text;not null"`
	Features        string `gorm:"column:features;type:text;not null"`
	Tiers           string `gorm:"column:tiers;type:text;not null"`
	Pricing         string `gorm:"column:pricing;type:text"`
	Limits          string `gorm:"column:limits;type:text"`
	Meta            string `gorm:"column:meta;type:text"`
}

// Store 基于 GORM 的模型目录表
type Store struct {
	db    *gorm.DB
	table string
	log   *logger.Logger
}

// NewStore 创建 Store；表名在拼接任何 SQL 之前校验
func NewStore(db *gorm.DB, table string, log *logger.Logger) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}
	return &Store{db: db, table: table, log: logger.OrGlobal(log).Named("catalog")}, nil
}

// Table 返回表名
func (s *Store) Table() string {
	return s.table
}

// EnsureSchema 建表（已存在时补齐缺失列）
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&modelRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// Upsert 插入或更新所有非主键列，可重复调用
func (s *Store) Upsert(ctx context.Context, m ModelSpec) error {
	return s.upsert(s.db.WithContext(ctx), m).Error
}

// Upserter 以 Upserter 形式返回 Upsert，供 Ensure 使用
func (s *Store) Upserter() Upserter {
	return s.Upsert
}

func (s *Store) upsert(tx *gorm.DB, m ModelSpec) *gorm.DB {
	one := Catalog{m.Clone()}
	if err := Validate(one); err != nil {
		_ = tx.AddError(err)
		return tx
	}
	row, err := toRow(one[0])
	if err != nil {
		_ = tx.AddError(err)
		return tx
	}
	return tx.Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row)
}

// Seed 建表并在一个事务中写入整个目录，cat 为空时写入 Default()
func (s *Store) Seed(ctx context.Context, cat Catalog) (int, error) {
	if len(cat) == 0 {
		cat = Default()
	} else {
		cat = cat.Clone()
	}
	if err := Validate(cat); err != nil {
		return 0, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range cat {
			if err := s.upsert(tx, m).Error; err != nil {
				return fmt.Errorf("upsert %s: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("seeded model catalog", zap.String("table", s.table), zap.Int("models", len(cat)))
	return len(cat), nil
}

// List 按 ID 排序读出全部模型
func (s *Store) List(ctx context.Context) (Catalog, error) {
	var rows []modelRow
	if err := s.db.WithContext(ctx).Table(s.table).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	cat := make(Catalog, 0, len(rows))
	for _, r := range rows {
		m, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		cat = append(cat, m)
	}
	return cat, nil
}

func toRow(m ModelSpec) (modelRow, error) {
	row := modelRow{
		ID:              m.ID,
		Provider:        m.Provider,
		Label:           m.Label,
		Family:          m.Family,
		ContextWindow:   m.ContextWindow,
		MaxOutputTokens: m.MaxOutputTokens,
	}
	fields := []struct {
		dst *string
		src any
	}{
		{&row.Modalities, m.Modalities},
		{&row.Features, m.Features},
		{&row.Tiers, m.Tiers},
		{&row.Pricing, m.Pricing},
		{&row.Limits, m.Limits},
		{&row.Meta, m.Meta},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.src)
		if err != nil {
			return modelRow{}, fmt.Errorf("encode %s: %w", m.ID, err)
		}
		*f.dst = string(data)
	}
	return row, nil
}

func fromRow(r modelRow) (ModelSpec, error) {
	m := ModelSpec{
		ID:              r.ID,
		Provider:        r.Provider,
		Label:           r.Label,
		Family:          r.Family,
		ContextWindow:   r.ContextWindow,
		MaxOutputTokens: r.MaxOutputTokens,
	}
	fields := []struct {
		src string
		dst any
	}{
		{r.Modalities, &m.Modalities},
		{r.Features, &m.Features},
		{r.Tiers, &m.Tiers},
		{r.Pricing, &m.Pricing},
		{r.Limits, &m.Limits},
		{r.Meta, &m.Meta},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return ModelSpec{}, fmt.Errorf("decode %s: %w", r.ID, err)
		}
	}
	return m, nil
}
