package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
)

// tierPolicyFile: формат файла лимитов:
//
//	tiers:
//	  basic: 5
//	  pro: 0        # 0 или отсутствие записи означает безлимит
type tierPolicyFile struct {
	Tiers map[string]int `yaml:"tiers"`
}

// LoadTierPolicy читает лимиты предложений по тарифам. Пустой путь даёт политику по умолчанию.
func LoadTierPolicy(path string) (valueobject.TierPolicy, error) {
	if path == "" {
		return valueobject.DefaultTierPolicy(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: не удалось прочитать файл тарифов %s: %w", path, err)
	}
	return ParseTierPolicy(raw)
}

func ParseTierPolicy(raw []byte) (valueobject.TierPolicy, error) {
	var file tierPolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("config: некорректный файл тарифов: %w", err)
	}

	policy := make(valueobject.TierPolicy, len(file.Tiers))
	for name, limit := range file.Tiers {
		tier, err := valueobject.NewTier(name)
		if err != nil || name == "" {
			return nil, fmt.Errorf("config: неизвестный тариф %q в файле тарифов", name)
		}
		if limit < 0 {
			return nil, fmt.Errorf("config: лимит тарифа %q не может быть отрицательным", name)
		}
		policy[tier] = limit
	}
	return policy, nil
}
