package slot

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"math/rand/v2"

	"github.com/wfunc/slot-sim/internal/errors"
)

// WeightVector 每个符号一个权重，下标即符号ID
type WeightVector []float64

// Validate 权重非空、非负且总和为正
func (w WeightVector) Validate() error {
	if len(w) == 0 {
		return errors.New(errors.ErrInvalidConfig, "权重向量为空")
	}
	total := 0.0
	for i, weight := range w {
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return errors.Newf(errors.ErrInvalidConfig, "符号 %d 的权重 %v 无效", i, weight)
		}
		total += weight
	}
	if !(total > 0) {
		return errors.New(errors.ErrInvalidConfig, "权重总和必须大于0")
	}
	return nil
}

// Total 权重总和
func (w WeightVector) Total() float64 {
	total := 0.0
	for _, weight := range w {
		total += weight
	}
	return total
}

// Probabilities 每个下标的理论概率 w[i]/W
func (w WeightVector) Probabilities() []float64 {
	total := w.Total()
	probs := make([]float64, len(w))
	if total <= 0 {
		return probs
	}
	for i, weight := range w {
		probs[i] = weight / total
	}
	return probs
}

// Clone 复制
func (w WeightVector) Clone() WeightVector {
	return append(WeightVector(nil), w...)
}

// RandomSource 返回 [0,1) 均匀分布的随机数
type RandomSource interface {
	Float64() float64
}

type cryptoSource struct {
	reader io.Reader
}

// NewCryptoSource 加密安全的随机源（默认）
func NewCryptoSource() RandomSource {
	return cryptoSource{reader: cryptorand.Reader}
}

// Float64 系统随机数不可用时直接panic，不降级到伪随机
func (c cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := io.ReadFull(c.reader, buf[:]); err != nil {
		panic(errors.Wrap(err, errors.ErrUnknown, "读取系统随机数失败"))
	}
	// 取53位
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

type seededSource struct {
	r *rand.Rand
}

// NewSeededSource 可复现的PCG随机源，用于模拟和测试
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Float64() float64 {
	return s.r.Float64()
}

// Sampler 轮盘赌加权抽样器
type Sampler struct {
	src RandomSource
}

// NewSampler 创建抽样器，src为nil时使用加密随机源
func NewSampler(src RandomSource) *Sampler {
	if src == nil {
		src = NewCryptoSource()
	}
	return &Sampler{src: src}
}

// Sample 按权重抽取一个下标，P(i) = w[i]/W
func (s *Sampler) Sample(weights WeightVector) (int, error) {
	if err := weights.Validate(); err != nil {
		return 0, err
	}
	return s.pick(weights, weights.Total()), nil
}

// pick 调用方保证权重已校验
func (s *Sampler) pick(weights WeightVector, total float64) int {
	r := s.src.Float64() * total
	cumulative := 0.0
	last := 0
	for i, weight := range weights {
		if weight <= 0 {
			continue
		}
		cumulative += weight
		if r < cumulative {
			return i
		}
		last = i
	}
	// 浮点误差导致 r >= cumulative 时落在最后一个正权重
	return last
}
