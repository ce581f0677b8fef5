package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON 自由结构的元数据，用于存储佣金附加参数
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	switch raw := value.(type) {
	case []byte:
		return json.Unmarshal(raw, j)
	case string:
		return json.Unmarshal([]byte(raw), j)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}

// Clone 返回浅拷贝，避免调用方修改已落账的元数据
func (j JSON) Clone() JSON {
	if j == nil {
		return nil
	}
	cloned := make(JSON, len(j))
	for key, value := range j {
		cloned[key] = value
	}
	return cloned
}
