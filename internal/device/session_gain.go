package device

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/protocol/lucid"
)

// ReadGainTable 读取 16 路增益并缓存
func (s *Session) ReadGainTable() (GainTable, error) {
	if !s.family.Queryable() {
		return GainTable{}, fmt.Errorf("%s: %w", lucid.GetAnalogGain, ErrNotQueryable)
	}
	payload, err := s.link.Send(lucid.GetAnalogGain)
	if err != nil {
		return GainTable{}, err
	}
	if len(payload) < Channels {
		return GainTable{}, fmt.Errorf("%s: %w: %d of %d bytes", lucid.GetAnalogGain, ErrShortPayload, len(payload), Channels)
	}
	if len(payload) > Channels {
		s.logger.Debug("gain payload longer than table", zap.Int("len", len(payload)))
	}
	t, err := NewGainTable(payload[:Channels])
	if err != nil {
		return GainTable{}, err
	}
	s.gains = t
	s.last.Gains = t.Ints()
	return GainTable{raw: t.Raw()}, nil
}

// SeedGainTable 用持久化的原始值填充增益表（MIDI 等无法回读的链路）
func (s *Session) SeedGainTable(raw []int) error {
	buf := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > maxRaw {
			return fmt.Errorf("%w: entry %d = %d", ErrOutOfRange, i, v)
		}
		buf[i] = byte(v)
	}
	t, err := NewGainTable(buf)
	if err != nil {
		return err
	}
	s.gains = t
	return nil
}

// Gains 当前缓存的增益表副本
func (s *Session) Gains() GainTable { return GainTable{raw: s.gains.Raw()} }

// UpdateChannel 修改缓存中的一路增益（下标 0-15），不下发
func (s *Session) UpdateChannel(index int, db int) error {
	return s.gains.Set(index, db)
}

// SetStage 修改缓存中整级增益，不下发
func (s *Session) SetStage(stage Stage, db int) error {
	return s.gains.SetStage(stage, db)
}

// WriteGainTable 将缓存的 16 路增益写回设备
func (s *Session) WriteGainTable() error {
	args, err := s.gains.WireBytes()
	if err != nil {
		return err
	}
	if err := s.apply(lucid.SetAnalogGain, args...); err != nil {
		return err
	}
	s.last.Gains = s.gains.Ints()
	s.touch()
	return nil
}

// ApplyPreset 读-改-写：整表设置为参考电平预设
func (s *Session) ApplyPreset(p Preset) error {
	if s.family.Queryable() {
		if _, err := s.ReadGainTable(); err != nil {
			return err
		}
	}
	if err := s.SetStage(StageInput, p.Input); err != nil {
		return err
	}
	if err := s.SetStage(StageOutput, p.Output); err != nil {
		return err
	}
	return s.WriteGainTable()
}

// SetChannels 读-改-写：设置某一级的若干通道
func (s *Session) SetChannels(stage Stage, db int, channels ...int) error {
	if len(channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrOutOfRange)
	}
	idx := make([]int, len(channels))
	for i, ch := range channels {
		n, err := stage.Index(ch)
		if err != nil {
			return err
		}
		idx[i] = n
	}
	if _, err := DBToRaw(db); err != nil {
		return err
	}
	if s.family.Queryable() {
		if _, err := s.ReadGainTable(); err != nil {
			return err
		}
	}
	for _, n := range idx {
		if err := s.UpdateChannel(n, db); err != nil {
			return err
		}
	}
	return s.WriteGainTable()
}
