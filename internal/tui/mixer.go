// Package tui 终端增益调音台：16 路模拟增益、输入/输出联动、参考电平预设。
// 基于 bubbletea/lipgloss，所有设备交互在 tea.Cmd 中串行执行。
package tui

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danmechanic/glucid/internal/device"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(8)

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(6).
			Align(lipgloss.Right)

	selectedStyle = cellStyle.
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57"))

	linkOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	linkOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true).
			PaddingLeft(1)
)

const bigStep = 6

// Backend 串行化对会话的访问
type Backend struct {
	mu   sync.Mutex
	sess *device.Session
}

// NewBackend 包装会话
func NewBackend(sess *device.Session) *Backend { return &Backend{sess: sess} }

func (b *Backend) do(fn func(s *device.Session) error) (snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := fn(b.sess)
	return snapshotOf(b.sess), err
}

// snapshot 界面需要的全部数据
type snapshot struct {
	gains   []int // dB；nil 表示增益表未知
	linkIn  bool
	linkOut bool
}

func snapshotOf(s *device.Session) snapshot {
	snap := s.Snapshot()
	out := snapshot{linkIn: snap.LinkInputs, linkOut: snap.LinkOutputs}
	g := s.Gains()
	if g.Full() {
		out.gains = make([]int, device.Channels)
		for i := range out.gains {
			out.gains[i], _ = g.DB(i)
		}
	}
	return out
}

// resultMsg 一次设备操作的结果
type resultMsg struct {
	snap   snapshot
	status string
	err    error
}

// Model 调音台模型
type Model struct {
	backend *Backend
	port    string
	family  string

	snap   snapshot
	cursor int // 0-15，前 8 路为输入
	busy   bool
	status string
	err    error
}

// New 创建调音台模型
func New(sess *device.Session) Model {
	return Model{
		backend: NewBackend(sess),
		port:    sess.InterfaceName(),
		family:  string(sess.Family()),
		busy:    true,
		status:  "loading gains…",
	}
}

// Run 全屏运行调音台直到退出
func Run(sess *device.Session) error {
	_, err := tea.NewProgram(New(sess), tea.WithAltScreen()).Run()
	return err
}

// Init 读取增益表
func (m Model) Init() tea.Cmd {
	return m.exec("gains loaded", func(s *device.Session) error {
		if !s.Family().Queryable() {
			if !s.Gains().Full() {
				return fmt.Errorf("no stored gains for a MIDI unit: %w", device.ErrTableNotLoaded)
			}
			return nil
		}
		_, err := s.ReadGainTable()
		return err
	})
}

func (m Model) exec(status string, fn func(s *device.Session) error) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		snap, err := b.do(fn)
		return resultMsg{snap: snap, status: status, err: err}
	}
}

// Update 处理按键与设备操作结果
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.busy = false
		m.snap = msg.snap
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.cursor = (m.cursor + device.Channels - 1) % device.Channels
			return m, nil
		case "right", "l":
			m.cursor = (m.cursor + 1) % device.Channels
			return m, nil
		case "tab":
			m.cursor = (m.cursor + device.ChannelsPerStage) % device.Channels
			return m, nil
		}
		if m.busy {
			return m, nil
		}
		switch key {
		case "up", "k", "+":
			return m.adjust(1)
		case "down", "j", "-":
			return m.adjust(-1)
		case "pgup", "K":
			return m.adjust(bigStep)
		case "pgdown", "J":
			return m.adjust(-bigStep)
		case "0":
			return m.setGain(0)
		case "i":
			return m.toggleLink(true)
		case "o":
			return m.toggleLink(false)
		case "p":
			return m.preset(device.PresetPro)
		case "c":
			return m.preset(device.PresetConsumer)
		case "r":
			m.busy = true
			return m, m.Init()
		}
	}
	return m, nil
}

func (m Model) stage() (device.Stage, int) {
	if m.cursor < device.ChannelsPerStage {
		return device.StageInput, m.cursor + 1
	}
	return device.StageOutput, m.cursor - device.ChannelsPerStage + 1
}

func (m Model) adjust(delta int) (tea.Model, tea.Cmd) {
	if m.snap.gains == nil {
		return m, nil
	}
	target := m.snap.gains[m.cursor] + delta
	if target > device.MaxGainDB {
		target = device.MaxGainDB
	}
	if target < device.MinGainDB {
		target = device.MinGainDB
	}
	return m.setGain(target)
}

func (m Model) setGain(db int) (tea.Model, tea.Cmd) {
	stage, ch := m.stage()
	linked := (stage == device.StageInput && m.snap.linkIn) || (stage == device.StageOutput && m.snap.linkOut)
	channels := []int{ch}
	label := fmt.Sprintf("%s %d", stage, ch)
	if linked {
		channels = channels[:0]
		for c := 1; c <= device.ChannelsPerStage; c++ {
			channels = append(channels, c)
		}
		label = fmt.Sprintf("all %ss", stage)
	}
	m.busy = true
	return m, m.exec(fmt.Sprintf("%s → %s dB", label, signed(db)), func(s *device.Session) error {
		return s.SetChannels(stage, db, channels...)
	})
}

func (m Model) toggleLink(inputs bool) (tea.Model, tea.Cmd) {
	in, out := m.snap.linkIn, m.snap.linkOut
	if inputs {
		in = !in
	} else {
		out = !out
	}
	m.busy = true
	return m, m.exec("links updated", func(s *device.Session) error {
		s.SetLinks(in, out)
		return nil
	})
}

func (m Model) preset(p device.Preset) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, m.exec("preset "+p.Name+" applied", func(s *device.Session) error {
		return s.ApplyPreset(p)
	})
}

// View 渲染调音台
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf(" Lucid 8824 · %s (%s) ", m.port, m.family)))
	sb.WriteString("\n\n")

	if m.snap.gains == nil {
		sb.WriteString("  no gain table\n")
	} else {
		sb.WriteString(m.renderRow("", 0, func(i int) string { return fmt.Sprintf("ch%d", i%device.ChannelsPerStage+1) }, false))
		sb.WriteString(m.renderRow("IN  "+link(m.snap.linkIn), 0, m.cell, true))
		sb.WriteString(m.renderRow("OUT "+link(m.snap.linkOut), device.ChannelsPerStage, m.cell, true))
	}
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	}
	status := m.status
	if m.busy {
		status = "talking to device…"
	}
	sb.WriteString(statusBarStyle.Render(status))
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Render("←/→ channel  tab in/out  ↑/↓ ±1dB  PgUp/PgDn ±6dB  0 zero  i/o link  p +4  c -10  r reload  q quit"))
	return sb.String()
}

func (m Model) renderRow(label string, offset int, text func(i int) string, selectable bool) string {
	cells := []string{labelStyle.Render(label)}
	for i := offset; i < offset+device.ChannelsPerStage; i++ {
		style := cellStyle
		if selectable && i == m.cursor {
			style = selectedStyle
		}
		cells = append(cells, style.Render(text(i)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n"
}

func (m Model) cell(i int) string { return signed(m.snap.gains[i]) }

func link(on bool) string {
	if on {
		return linkOnStyle.Render("⛓")
	}
	return linkOffStyle.Render("·")
}

func signed(db int) string {
	if db >= 0 {
		return fmt.Sprintf("+%d", db)
	}
	return fmt.Sprintf("%d", db)
}
