package slot

// FreeSpinConfig Scatter个数对应的免费旋转次数
type FreeSpinConfig struct {
	ThreeScatters int `json:"three_scatters"`
	FourScatters  int `json:"four_scatters"`
	FiveScatters  int `json:"five_scatters"`
}

// Award 返回scatter个数对应的免费旋转次数，不足3个为0
func (c FreeSpinConfig) Award(scatterCount int) int {
	switch {
	case scatterCount >= 5:
		return c.FiveScatters
	case scatterCount == 4:
		return c.FourScatters
	case scatterCount == 3:
		return c.ThreeScatters
	default:
		return 0
	}
}

// PayoutInput 赔付计算输入
type PayoutInput struct {
	Matches          []LineMatch
	ScatterCount     int
	Bet              float64
	GlobalMultiplier float64
	Table            *SymbolTable
	FreeSpins        FreeSpinConfig
}

// PayoutResult 赔付计算结果，金额不做任何取整
type PayoutResult struct {
	Payout           float64
	LinePayout       float64
	ScatterPayout    float64
	LineWins         []LineWin
	FreeSpinsAwarded int
	BonusTriggered   bool
	JackpotWon       bool
}

// LinePayout bet × 基础赔率 × 全局倍率 × 档位/100，只有3/4/5连有赔付
func LinePayout(sym Symbol, count int, bet, globalMultiplier float64) float64 {
	tier, ok := sym.Tiers.ForCount(count)
	if !ok {
		return 0
	}
	return bet * sym.BasePayout * globalMultiplier * (tier / 100)
}

// ScatterPayout scatter按自身档位计算，5个及以上按5个计
func ScatterPayout(scatter Symbol, scatterCount int, bet, globalMultiplier float64) float64 {
	if scatterCount < MinWinCount {
		return 0
	}
	if scatterCount > 5 {
		scatterCount = 5
	}
	return LinePayout(scatter, scatterCount, bet, globalMultiplier)
}

// CountScatters 统计整张网格上的scatter个数，与支付线无关
func CountScatters(grid Grid, table *SymbolTable) int {
	id, ok := table.ScatterID()
	if !ok {
		return 0
	}
	return grid.Count(id)
}

// ComputePayout 按支付线顺序累加线赔付；遇到Jackpot符号5连时把当前累计总额翻倍，
// 每次出现翻倍一次。Scatter赔付在所有线之后加上，不参与翻倍。
func ComputePayout(in PayoutInput) PayoutResult {
	var res PayoutResult
	jackpotID, hasJackpot := in.Table.JackpotID()

	for _, m := range in.Matches {
		sym, ok := in.Table.Get(m.SymbolID)
		if !ok {
			continue
		}
		pay := LinePayout(sym, m.Count, in.Bet, in.GlobalMultiplier)
		res.LinePayout += pay
		res.LineWins = append(res.LineWins, LineWin{LineMatch: m, Payout: pay})

		if hasJackpot && m.SymbolID == jackpotID && m.Count == 5 {
			res.LinePayout *= 2
			res.JackpotWon = true
		}
	}

	if scatterID, ok := in.Table.ScatterID(); ok && in.ScatterCount >= MinWinCount {
		scatter, _ := in.Table.Get(scatterID)
		res.ScatterPayout = ScatterPayout(scatter, in.ScatterCount, in.Bet, in.GlobalMultiplier)
		res.FreeSpinsAwarded = in.FreeSpins.Award(in.ScatterCount)
		res.BonusTriggered = true
	}

	res.Payout = res.LinePayout + res.ScatterPayout
	return res
}
