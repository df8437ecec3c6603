package cli

import (
	"github.com/danmechanic/glucid/internal/device"
)

type settingRow struct {
	Control string `json:"control" yaml:"control" table:"CONTROL"`
	Value   int    `json:"value" yaml:"value" table:"VALUE"`
	Setting string `json:"setting" yaml:"setting" table:"SETTING"`
}

type gainRow struct {
	Channel int    `json:"channel" yaml:"channel" table:"CHANNEL"`
	Input   string `json:"input_db" yaml:"input_db" table:"IN (dB)"`
	Output  string `json:"output_db" yaml:"output_db" table:"OUT (dB)"`
}

type choiceRow struct {
	Value   int    `json:"value" yaml:"value" table:"VALUE"`
	Setting string `json:"setting" yaml:"setting" table:"SETTING"`
}

type deviceView struct {
	Port     string       `json:"port" yaml:"port"`
	Address  int          `json:"address" yaml:"address"`
	Source   string       `json:"source" yaml:"source"`
	Settings []settingRow `json:"settings" yaml:"settings"`
	Gains    []gainRow    `json:"gains,omitempty" yaml:"gains,omitempty"`
}

const gainHint = `Recommended: +4dBu: IN -8 dB OUT  +1 dB
            -10dBV: IN +4 dB OUT -11 dB
`

func newSettingRow(c device.Control, v int) settingRow {
	return settingRow{Control: string(c), Value: v, Setting: device.Describe(c, v)}
}

func gainRows(t device.GainTable) []gainRow {
	if !t.Full() {
		return nil
	}
	s := t.Strings()
	rows := make([]gainRow, device.ChannelsPerStage)
	for i := range rows {
		rows[i] = gainRow{Channel: i + 1, Input: s[i], Output: s[i+device.ChannelsPerStage]}
	}
	return rows
}

func choiceRows(c device.Control) []choiceRow {
	names := c.Choices()
	rows := make([]choiceRow, len(names))
	for i, n := range names {
		rows[i] = choiceRow{Value: i, Setting: n}
	}
	return rows
}
