package slot

import (
	"math"

	"github.com/wfunc/slot-sim/internal/errors"
)

// RTPReport 理论RTP分解，金额均为每单位投注每次转轮的期望值
type RTPReport struct {
	LineReturn       float64   `json:"line_return"`
	JackpotReturn    float64   `json:"jackpot_return"`
	ScatterReturn    float64   `json:"scatter_return"`
	SymbolReturn     []float64 `json:"symbol_return"`
	FreeSpinsPerSpin float64   `json:"free_spins_per_spin"`
	BonusProbability float64   `json:"bonus_probability"`
	RTP              float64   `json:"rtp"` // 百分比
}

// TheoreticalRTP 按逐格独立抽样模型解析计算RTP。
//
// 长度为L的支付线上，符号s的概率为p，则连续k个的概率为
// p^k(1-p) (k<L) 或 p^L (k=L)。Scatter个数服从 Binomial(reels*rows, p_scatter)。
// 免费旋转不计投注，期望总转轮数为 1/(1-F)，F为每次转轮的期望免费次数，F>=1时RTP无定义。
// Jackpot翻倍只计入该线自身的翻倍部分，同一次转轮中其他线被翻倍的部分忽略不计。
func TheoreticalRTP(cfg MachineConfig) (RTPReport, error) {
	if err := cfg.Validate(); err != nil {
		return RTPReport{}, err
	}

	probs := cfg.Weights.Probabilities()
	report := RTPReport{SymbolReturn: make([]float64, len(cfg.Symbols))}

	for _, line := range cfg.Paylines {
		length := len(line.Positions)
		for _, sym := range cfg.Symbols {
			p := probs[sym.ID]
			if p == 0 {
				continue
			}
			for k := MinWinCount; k <= length && k <= 5; k++ {
				pk := runProbability(p, k, length)
				pay := LinePayout(sym, k, 1, cfg.GlobalMultiplier)
				report.SymbolReturn[sym.ID] += pk * pay
				report.LineReturn += pk * pay
				if sym.IsJackpotTrigger && k == 5 {
					report.JackpotReturn += pk * pay
				}
			}
		}
	}

	for _, sym := range cfg.Symbols {
		if !sym.IsScatter {
			continue
		}
		cells := cfg.Reels * cfg.Rows
		p := probs[sym.ID]
		for k := MinWinCount; k <= cells; k++ {
			pk := binomial(cells, k, p)
			report.BonusProbability += pk
			report.ScatterReturn += pk * ScatterPayout(sym, k, 1, cfg.GlobalMultiplier)
			report.FreeSpinsPerSpin += pk * float64(cfg.FreeSpins.Award(k))
		}
	}

	if report.FreeSpinsPerSpin >= 1 {
		return report, errors.Newf(errors.ErrRTPUndefined, "每次转轮期望免费次数 %.4f >= 1", report.FreeSpinsPerSpin)
	}

	perSpin := report.LineReturn + report.JackpotReturn + report.ScatterReturn
	report.RTP = perSpin / (1 - report.FreeSpinsPerSpin) * 100
	return report, nil
}

// runProbability 长度为length的线上恰好连续k个的概率
func runProbability(p float64, k, length int) float64 {
	if k == length {
		return math.Pow(p, float64(k))
	}
	return math.Pow(p, float64(k)) * (1 - p)
}

func binomial(n, k int, p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		if k == n {
			return 1
		}
		return 0
	}
	lg := func(x int) float64 {
		v, _ := math.Lgamma(float64(x + 1))
		return v
	}
	logC := lg(n) - lg(k) - lg(n-k)
	return math.Exp(logC + float64(k)*math.Log(p) + float64(n-k)*math.Log1p(-p))
}
