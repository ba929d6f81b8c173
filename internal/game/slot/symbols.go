package slot

import (
	"math"

	"github.com/wfunc/slot-sim/internal/errors"
)

// PayoutTiers 3/4/5连的赔付档位（百分比）
type PayoutTiers struct {
	Three float64 `json:"three"`
	Four  float64 `json:"four"`
	Five  float64 `json:"five"`
}

// ForCount 返回连线个数对应的档位，只有3/4/5有赔付
func (t PayoutTiers) ForCount(count int) (float64, bool) {
	switch count {
	case 3:
		return t.Three, true
	case 4:
		return t.Four, true
	case 5:
		return t.Five, true
	default:
		return 0, false
	}
}

func (t PayoutTiers) valid() bool {
	for _, v := range []float64{t.Three, t.Four, t.Five} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Symbol 符号定义，配置加载后不可变
type Symbol struct {
	ID               int         `json:"id"`
	Name             string      `json:"name"`
	BasePayout       float64     `json:"base_payout"`
	Tiers            PayoutTiers `json:"tiers"`
	IsScatter        bool        `json:"is_scatter"`
	IsJackpotTrigger bool        `json:"is_jackpot_trigger"`
	// IsWild 保留字段，当前不参与任何匹配
	IsWild bool `json:"is_wild"`
}

// SymbolTable 有序的符号表，ID即下标
type SymbolTable struct {
	symbols []Symbol
	scatter int
	jackpot int
}

// NewSymbolTable 校验并创建符号表
func NewSymbolTable(symbols []Symbol) (*SymbolTable, error) {
	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrInvalidConfig, "符号表为空")
	}

	table := &SymbolTable{
		symbols: append([]Symbol(nil), symbols...),
		scatter: -1,
		jackpot: -1,
	}

	for i, sym := range table.symbols {
		if sym.ID != i {
			return nil, errors.Newf(errors.ErrInvalidConfig, "符号 %q 的ID为 %d，应为 %d", sym.Name, sym.ID, i)
		}
		if !(sym.BasePayout > 0) || math.IsInf(sym.BasePayout, 0) {
			return nil, errors.Newf(errors.ErrInvalidConfig, "符号 %d 的基础赔率必须为正数", i)
		}
		if !sym.Tiers.valid() {
			return nil, errors.Newf(errors.ErrInvalidConfig, "符号 %d 的赔付档位不能为负", i)
		}
		if sym.IsScatter {
			if table.scatter >= 0 {
				return nil, errors.New(errors.ErrInvalidConfig, "只允许一个Scatter符号")
			}
			table.scatter = i
		}
		if sym.IsJackpotTrigger {
			if table.jackpot >= 0 {
				return nil, errors.New(errors.ErrInvalidConfig, "只允许一个Jackpot触发符号")
			}
			table.jackpot = i
		}
	}

	return table, nil
}

// Len 符号数量
func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// Get 按ID查找符号
func (t *SymbolTable) Get(id int) (Symbol, bool) {
	if id < 0 || id >= len(t.symbols) {
		return Symbol{}, false
	}
	return t.symbols[id], true
}

// Symbols 返回符号副本
func (t *SymbolTable) Symbols() []Symbol {
	return append([]Symbol(nil), t.symbols...)
}

// ScatterID Scatter符号ID
func (t *SymbolTable) ScatterID() (int, bool) {
	return t.scatter, t.scatter >= 0
}

// JackpotID Jackpot触发符号ID
func (t *SymbolTable) JackpotID() (int, bool) {
	return t.jackpot, t.jackpot >= 0
}

// Name 符号名称，未知ID返回空串
func (t *SymbolTable) Name(id int) string {
	if sym, ok := t.Get(id); ok {
		return sym.Name
	}
	return ""
}
