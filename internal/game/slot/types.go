package slot

// Position 网格位置
type Position struct {
	Reel int `json:"reel"` // 卷轴索引 (0-based)
	Row  int `json:"row"`  // 行索引 (0-based)
}

// Grid 转轮结果网格，按 [reel][row] 存放符号ID
type Grid [][]int

// NewGrid 从二维数组复制出网格
func NewGrid(cells [][]int) Grid {
	return Grid(cells).Clone()
}

// Reels 卷轴数
func (g Grid) Reels() int {
	return len(g)
}

// Rows 行数
func (g Grid) Rows() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// At 读取指定位置的符号
func (g Grid) At(pos Position) int {
	return g[pos.Reel][pos.Row]
}

// Contains 判断位置是否在网格内
func (g Grid) Contains(pos Position) bool {
	return pos.Reel >= 0 && pos.Reel < g.Reels() && pos.Row >= 0 && pos.Row < len(g[pos.Reel])
}

// Clone 深拷贝
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, reel := range g {
		out[i] = append([]int(nil), reel...)
	}
	return out
}

// Count 统计网格中某个符号出现的次数
func (g Grid) Count(symbolID int) int {
	n := 0
	for _, reel := range g {
		for _, id := range reel {
			if id == symbolID {
				n++
			}
		}
	}
	return n
}

// LineMatch 一条中奖支付线
type LineMatch struct {
	PaylineID int `json:"payline_id"`
	SymbolID  int `json:"symbol_id"`
	Count     int `json:"count"`
}

// LineWin 带赔付金额的中奖线
type LineWin struct {
	LineMatch
	Payout float64 `json:"payout"`
}
