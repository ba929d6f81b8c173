package slot

import "github.com/wfunc/slot-sim/internal/errors"

// GenerateGrid 每个格子独立抽样生成 reels×rows 网格，整次转轮使用同一权重向量
func (s *Sampler) GenerateGrid(weights WeightVector, reels, rows int) (Grid, error) {
	if reels <= 0 || rows <= 0 {
		return nil, errors.Newf(errors.ErrInvalidConfig, "网格尺寸 %dx%d 无效", reels, rows)
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	total := weights.Total()
	grid := make(Grid, reels)
	for reel := 0; reel < reels; reel++ {
		grid[reel] = make([]int, rows)
		for row := 0; row < rows; row++ {
			grid[reel][row] = s.pick(weights, total)
		}
	}
	return grid, nil
}
