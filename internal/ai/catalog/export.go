package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Export 校验后导出为缩进 2 空格的 JSON，不修改输入
func Export(cat Catalog) (string, error) {
	cat = cat.Clone()
	if err := Validate(cat); err != nil {
		return "", err
	}
	if cat == nil {
		cat = Catalog{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cat); err != nil {
		return "", fmt.Errorf("encode catalog: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// ExportYAML 校验后导出为 YAML
func ExportYAML(cat Catalog) ([]byte, error) {
	cat = cat.Clone()
	if err := Validate(cat); err != nil {
		return nil, err
	}
	return yaml.Marshal(cat)
}

// ImportJSON 解析 JSON 数组形式的目录（不校验）
func ImportJSON(data []byte) (Catalog, error) {
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return cat, nil
}

// yamlFile 覆盖文件也可以写成 {models: [...]} 的形式
type yamlFile struct {
	Models Catalog `yaml:"models"`
}

// ImportYAML 解析 YAML 目录（列表或 models 字段），不校验
func ImportYAML(data []byte) (Catalog, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.MappingNode {
		var f yamlFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		return f.Models, nil
	}

	var cat Catalog
	if err := root.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return cat, nil
}
