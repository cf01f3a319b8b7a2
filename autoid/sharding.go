package autoid

import (
	"gorm.io/sharding"

	"github.com/ceyewan/autoid/idgen"
	"github.com/ceyewan/autoid/xerrors"
)

// ShardingRule 分表规则
type ShardingRule struct {
	ShardingKey    string   `mapstructure:"sharding_key" json:"sharding_key" yaml:"sharding_key"`
	NumberOfShards uint     `mapstructure:"number_of_shards" json:"number_of_shards" yaml:"number_of_shards"`
	Tables         []string `mapstructure:"tables" json:"tables" yaml:"tables"`
}

func (r *ShardingRule) validate() error {
	if r.ShardingKey == "" {
		return xerrors.Wrap(ErrInvalidInput, "sharding key is required")
	}
	if r.NumberOfShards == 0 {
		return xerrors.Wrap(ErrInvalidInput, "number of shards must be positive")
	}
	if len(r.Tables) == 0 {
		return xerrors.Wrap(ErrInvalidInput, "at least one table is required")
	}
	return nil
}

// NewSharding 创建 gorm.io/sharding 中间件，分表主键由 src 生成，
// 与 Plugin 填充的字段共用同一个节点身份
//
//	middleware, _ := autoid.NewSharding(holder, autoid.ShardingRule{
//	    ShardingKey: "user_id", NumberOfShards: 4, Tables: []string{"orders"},
//	})
//	_ = db.Use(middleware)
func NewSharding(src idgen.IDSource, rule ShardingRule) (*sharding.Sharding, error) {
	if src == nil {
		return nil, xerrors.Wrap(ErrInvalidInput, "id source is nil")
	}
	if err := rule.validate(); err != nil {
		return nil, err
	}
	tables := make([]any, 0, len(rule.Tables))
	for _, t := range rule.Tables {
		tables = append(tables, t)
	}
	return sharding.Register(shardingConfig(src, rule), tables...), nil
}

func shardingConfig(src idgen.IDSource, rule ShardingRule) sharding.Config {
	return sharding.Config{
		ShardingKey:         rule.ShardingKey,
		NumberOfShards:      rule.NumberOfShards,
		PrimaryKeyGenerator: sharding.PKCustom,
		PrimaryKeyGeneratorFn: func(int64) int64 {
			return src.NextID()
		},
	}
}
