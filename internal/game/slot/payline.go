package slot

import (
	"github.com/wfunc/slot-sim/internal/errors"
)

// MinWinCount 支付线最少连续个数
const MinWinCount = 3

// Payline 支付线几何，按最左卷轴开始的顺序排列
type Payline struct {
	ID        int        `json:"id"`
	Positions []Position `json:"positions"`
}

// ValidatePaylines 校验支付线ID唯一且位置都在网格内
func ValidatePaylines(lines []Payline, reels, rows int) error {
	if len(lines) == 0 {
		return errors.New(errors.ErrInvalidConfig, "至少需要一条支付线")
	}

	seen := make(map[int]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.ID]; dup {
			return errors.Newf(errors.ErrInvalidConfig, "支付线ID %d 重复", line.ID)
		}
		seen[line.ID] = struct{}{}

		if len(line.Positions) == 0 {
			return errors.Newf(errors.ErrInvalidConfig, "支付线 %d 没有位置", line.ID)
		}
		for _, pos := range line.Positions {
			if pos.Reel < 0 || pos.Reel >= reels || pos.Row < 0 || pos.Row >= rows {
				return errors.Newf(errors.ErrInvalidConfig, "支付线 %d 的位置 (%d,%d) 超出 %dx%d 网格",
					line.ID, pos.Reel, pos.Row, reels, rows)
			}
		}
	}
	return nil
}

// EvaluatePaylines 返回所有中奖线（连续个数>=3），顺序与lines一致。
// 每条线独立计算，同一格子可以同时参与多条中奖线。
func EvaluatePaylines(grid Grid, lines []Payline) []LineMatch {
	var matches []LineMatch
	for _, line := range lines {
		symbolID, count := runLength(grid, line.Positions)
		if count >= MinWinCount {
			matches = append(matches, LineMatch{
				PaylineID: line.ID,
				SymbolID:  symbolID,
				Count:     count,
			})
		}
	}
	return matches
}

// runLength 从第一个位置开始，与首个符号相同的连续个数
func runLength(grid Grid, positions []Position) (int, int) {
	if len(positions) == 0 || !grid.Contains(positions[0]) {
		return -1, 0
	}
	first := grid.At(positions[0])
	count := 1
	for _, pos := range positions[1:] {
		if !grid.Contains(pos) || grid.At(pos) != first {
			break
		}
		count++
	}
	return first, count
}

// DefaultPaylines 标准10线：三条横线、V、倒V、两条之字形、两条平台线、斜坡线
func DefaultPaylines(reels, rows int) []Payline {
	shapes := [][]int{
		horizontalLine(rows/2, reels),
		horizontalLine(0, reels),
		horizontalLine(rows-1, reels),
		vLine(reels, rows, false),
		vLine(reels, rows, true),
		zigzagLine(reels, rows, true),
		zigzagLine(reels, rows, false),
		plateauLine(reels, rows/2, 0),
		plateauLine(reels, rows/2, rows-1),
		rampLine(reels, rows),
	}

	lines := make([]Payline, len(shapes))
	for i, rowsOnLine := range shapes {
		positions := make([]Position, reels)
		for reel, row := range rowsOnLine {
			positions[reel] = Position{Reel: reel, Row: row}
		}
		lines[i] = Payline{ID: i + 1, Positions: positions}
	}
	return lines
}

func horizontalLine(row, reels int) []int {
	line := make([]int, reels)
	for i := range line {
		line[i] = row
	}
	return line
}

// vLine 中间卷轴为顶点，upward为倒V
func vLine(reels, rows int, upward bool) []int {
	line := make([]int, reels)
	mid := reels / 2
	for i := range line {
		depth := i
		if i > mid {
			depth = reels - 1 - i
		}
		row := depth
		if upward {
			row = rows - 1 - depth
		}
		line[i] = clampRow(row, rows)
	}
	return line
}

func zigzagLine(reels, rows int, startTop bool) []int {
	line := make([]int, reels)
	for i := range line {
		top := i%2 == 0
		if !startTop {
			top = !top
		}
		if top {
			line[i] = 0
		} else {
			line[i] = rows - 1
		}
	}
	return line
}

// plateauLine 首尾在edge行，中间卷轴在inner行
func plateauLine(reels, edge, inner int) []int {
	line := make([]int, reels)
	for i := range line {
		if i == 0 || i == reels-1 {
			line[i] = edge
		} else {
			line[i] = inner
		}
	}
	return line
}

// rampLine 从顶行均匀下降到底行
func rampLine(reels, rows int) []int {
	line := make([]int, reels)
	if reels == 1 {
		return line
	}
	for i := range line {
		line[i] = i * (rows - 1) / (reels - 1)
	}
	return line
}

func clampRow(row, rows int) int {
	if row < 0 {
		return 0
	}
	if row >= rows {
		return rows - 1
	}
	return row
}
